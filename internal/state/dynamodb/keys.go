package dynamodb

import (
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// PK/SK prefix constants.
const (
	prefixRun  = "RUN#"
	prefixLock = "LOCK#"

	pkRunList    = "RUNS"
	pkWatermarks = "WATERMARK"

	skRun  = "RUN"
	skLock = "LOCK"
)

func runPK(runID string) string { return prefixRun + runID }
func lockPK(key string) string  { return prefixLock + key }

// runListSK sorts list copies by start time so Query with
// ScanIndexForward=false yields newest first.
func runListSK(startedAt time.Time, runID string) string {
	return prefixRun + startedAt.UTC().Format(time.RFC3339Nano) + "#" + runID
}

func ttlEpoch(d time.Duration) int64 {
	return time.Now().Add(d).Unix()
}

// isExpired guards reads against items the TTL sweeper has not collected yet.
func isExpired(epoch int64) bool {
	return epoch > 0 && time.Now().Unix() > epoch
}

// attributeStr extracts a string attribute from a DynamoDB item.
func attributeStr(item map[string]ddbtypes.AttributeValue, key string) (string, error) {
	av, ok := item[key]
	if !ok {
		return "", fmt.Errorf("missing attribute %q", key)
	}
	var s string
	if err := attributevalue.Unmarshal(av, &s); err != nil {
		return "", fmt.Errorf("unmarshaling %q: %w", key, err)
	}
	return s, nil
}

// attributeInt extracts an integer attribute from a DynamoDB item; a missing
// attribute reads as zero.
func attributeInt(item map[string]ddbtypes.AttributeValue, key string) (int64, error) {
	av, ok := item[key]
	if !ok {
		return 0, nil
	}
	var n int64
	if err := attributevalue.Unmarshal(av, &n); err != nil {
		return 0, fmt.Errorf("unmarshaling %q: %w", key, err)
	}
	return n, nil
}
