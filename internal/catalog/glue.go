// Package catalog registers consolidated silver tables in the AWS Glue Data
// Catalog so downstream query engines can discover them.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/glue"
	gluetypes "github.com/aws/aws-sdk-go-v2/service/glue/types"

	"github.com/lakecraft/silversmith/pkg/types"
)

// GlueAPI is the subset of the Glue client used by the Registrar.
type GlueAPI interface {
	GetTable(ctx context.Context, params *glue.GetTableInput, optFns ...func(*glue.Options)) (*glue.GetTableOutput, error)
	CreateTable(ctx context.Context, params *glue.CreateTableInput, optFns ...func(*glue.Options)) (*glue.CreateTableOutput, error)
}

// Registrar registers silver tables in a Glue database, creating entries
// for tables the catalog does not know yet. Existing entries are left
// untouched; schema evolution of catalog entries is out of scope.
type Registrar struct {
	client   GlueAPI
	database string
}

// RegistrarOption configures a Registrar.
type RegistrarOption func(*Registrar)

// WithGlueClient sets a custom Glue client (useful for testing).
func WithGlueClient(c GlueAPI) RegistrarOption {
	return func(r *Registrar) { r.client = c }
}

// NewRegistrar creates a Registrar for the configured Glue database.
func NewRegistrar(cfg types.CatalogConfig, opts ...RegistrarOption) (*Registrar, error) {
	if cfg.Database == "" {
		return nil, fmt.Errorf("glue database name required")
	}
	r := &Registrar{database: cfg.Database}
	for _, o := range opts {
		o(r)
	}
	if r.client == nil {
		var loadOpts []func(*awsconfig.LoadOptions) error
		if cfg.Region != "" {
			loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), loadOpts...)
		if err != nil {
			return nil, fmt.Errorf("loading AWS config: %w", err)
		}
		r.client = glue.NewFromConfig(awsCfg, func(o *glue.Options) {
			if cfg.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Endpoint)
			}
		})
	}
	return r, nil
}

// Register creates the catalog entry for a silver table when absent.
func (r *Registrar) Register(ctx context.Context, table string, cols []types.Column) error {
	_, err := r.client.GetTable(ctx, &glue.GetTableInput{
		DatabaseName: aws.String(r.database),
		Name:         aws.String(table),
	})
	if err == nil {
		return nil
	}
	var notFound *gluetypes.EntityNotFoundException
	if !errors.As(err, &notFound) {
		return fmt.Errorf("checking catalog entry for %s: %w", table, err)
	}

	glueCols := make([]gluetypes.Column, 0, len(cols))
	for _, c := range cols {
		if strings.HasPrefix(c.Name, "_") {
			// Staging helper columns never reach silver.
			continue
		}
		glueCols = append(glueCols, gluetypes.Column{
			Name: aws.String(c.Name),
			Type: aws.String(glueType(c.Type)),
		})
	}

	_, err = r.client.CreateTable(ctx, &glue.CreateTableInput{
		DatabaseName: aws.String(r.database),
		TableInput: &gluetypes.TableInput{
			Name:      aws.String(table),
			TableType: aws.String("EXTERNAL_TABLE"),
			Parameters: map[string]string{
				"classification": "parquet",
				"created_by":     "silversmith",
			},
			StorageDescriptor: &gluetypes.StorageDescriptor{
				Columns: glueCols,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("creating catalog entry for %s: %w", table, err)
	}
	return nil
}

// glueType maps a DuckDB column type to its Glue catalog equivalent.
func glueType(duck string) string {
	t := strings.ToUpper(duck)
	switch {
	case strings.HasPrefix(t, "DECIMAL"):
		return strings.ToLower(duck)
	case t == "TINYINT" || t == "SMALLINT":
		return "smallint"
	case t == "INTEGER" || t == "INT":
		return "int"
	case t == "BIGINT" || t == "HUGEINT":
		return "bigint"
	case t == "FLOAT" || t == "REAL":
		return "float"
	case t == "DOUBLE":
		return "double"
	case t == "BOOLEAN":
		return "boolean"
	case t == "DATE":
		return "date"
	case strings.HasPrefix(t, "TIMESTAMP"):
		return "timestamp"
	case t == "BLOB":
		return "binary"
	default:
		return "string"
	}
}
