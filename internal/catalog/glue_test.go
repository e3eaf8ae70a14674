package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/glue"
	gluetypes "github.com/aws/aws-sdk-go-v2/service/glue/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lakecraft/silversmith/pkg/types"
)

type fakeGlue struct {
	getFn    func(ctx context.Context, input *glue.GetTableInput) (*glue.GetTableOutput, error)
	createFn func(ctx context.Context, input *glue.CreateTableInput) (*glue.CreateTableOutput, error)
}

func (f *fakeGlue) GetTable(ctx context.Context, input *glue.GetTableInput, _ ...func(*glue.Options)) (*glue.GetTableOutput, error) {
	return f.getFn(ctx, input)
}

func (f *fakeGlue) CreateTable(ctx context.Context, input *glue.CreateTableInput, _ ...func(*glue.Options)) (*glue.CreateTableOutput, error) {
	return f.createFn(ctx, input)
}

func newRegistrar(t *testing.T, client GlueAPI) *Registrar {
	t.Helper()
	r, err := NewRegistrar(types.CatalogConfig{Enabled: true, Database: "silver"}, WithGlueClient(client))
	require.NoError(t, err)
	return r
}

func eventColumns() []types.Column {
	return []types.Column{
		{Name: "event_id", Type: "VARCHAR"},
		{Name: "amount", Type: "DOUBLE"},
		{Name: "event_ts", Type: "BIGINT"},
		{Name: "_load_day", Type: "DATE"},
	}
}

func TestRegisterCreatesMissingEntry(t *testing.T) {
	var created *glue.CreateTableInput
	client := &fakeGlue{
		getFn: func(context.Context, *glue.GetTableInput) (*glue.GetTableOutput, error) {
			return nil, &gluetypes.EntityNotFoundException{}
		},
		createFn: func(_ context.Context, input *glue.CreateTableInput) (*glue.CreateTableOutput, error) {
			created = input
			return &glue.CreateTableOutput{}, nil
		},
	}

	err := newRegistrar(t, client).Register(context.Background(), "events", eventColumns())
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, "silver", *created.DatabaseName)
	assert.Equal(t, "events", *created.TableInput.Name)

	cols := created.TableInput.StorageDescriptor.Columns
	require.Len(t, cols, 3, "helper columns must be stripped")
	assert.Equal(t, "string", *cols[0].Type)
	assert.Equal(t, "double", *cols[1].Type)
	assert.Equal(t, "bigint", *cols[2].Type)
}

func TestRegisterSkipsExistingEntry(t *testing.T) {
	client := &fakeGlue{
		getFn: func(context.Context, *glue.GetTableInput) (*glue.GetTableOutput, error) {
			return &glue.GetTableOutput{}, nil
		},
		createFn: func(context.Context, *glue.CreateTableInput) (*glue.CreateTableOutput, error) {
			t.Fatal("CreateTable must not be called for an existing entry")
			return nil, nil
		},
	}

	err := newRegistrar(t, client).Register(context.Background(), "events", eventColumns())
	require.NoError(t, err)
}

func TestRegisterPropagatesLookupError(t *testing.T) {
	client := &fakeGlue{
		getFn: func(context.Context, *glue.GetTableInput) (*glue.GetTableOutput, error) {
			return nil, errors.New("throttled")
		},
	}

	err := newRegistrar(t, client).Register(context.Background(), "events", eventColumns())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")
}

func TestGlueTypeMapping(t *testing.T) {
	assert.Equal(t, "string", glueType("VARCHAR"))
	assert.Equal(t, "int", glueType("INTEGER"))
	assert.Equal(t, "bigint", glueType("BIGINT"))
	assert.Equal(t, "timestamp", glueType("TIMESTAMP WITH TIME ZONE"))
	assert.Equal(t, "decimal(18,3)", glueType("DECIMAL(18,3)"))
	assert.Equal(t, "string", glueType("UUID"))
}
