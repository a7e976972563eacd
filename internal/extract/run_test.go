package extract

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brogergvhs/storyd/internal/story"
	"github.com/brogergvhs/storyd/internal/util"
)

func runPlan(t *testing.T) story.Plan {
	t.Helper()
	return story.NewPlan("https://example.com/Story/index.html", t.TempDir(), "", "tale", "")
}

func writeRaw(t *testing.T, plan story.Plan, index int, markup string) {
	t.Helper()
	require.NoError(t, util.WriteFileAtomic(plan.RawPath(index), []byte(markup), 0644))
}

func TestConvertAllWritesDocuments(t *testing.T) {
	plan := runPlan(t)
	writeRaw(t, plan, 1, `<html><body><article><h1>One</h1><p>first chapter text</p></article></body></html>`)
	writeRaw(t, plan, 2, `<html><body><article><h1>Two</h1><p>second chapter text</p></article></body></html>`)

	results, err := ConvertAll(context.Background(), plan, Extractor{}, 2, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)

	for i, res := range results {
		assert.Equal(t, i+1, res.Index)
		assert.Equal(t, ResultConverted, res.Status)
		assert.FileExists(t, res.Path)
	}

	data, err := os.ReadFile(plan.DocPath(1))
	require.NoError(t, err)
	assert.Contains(t, string(data), "# One")
}

func TestConvertAllMissingRawIsRecorded(t *testing.T) {
	plan := runPlan(t)
	writeRaw(t, plan, 2, `<html><body><article><h1>Two</h1><p>only this one exists</p></article></body></html>`)

	results, err := ConvertAll(context.Background(), plan, Extractor{}, 2, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, ResultMissing, results[0].Status)
	assert.Equal(t, ResultConverted, results[1].Status)
}

func TestConvertAllFailureLoggedAndContinues(t *testing.T) {
	plan := runPlan(t)
	writeRaw(t, plan, 1, `<html><body><nav>only chrome</nav></body></html>`)
	writeRaw(t, plan, 2, `<html><body><article><h1>Two</h1><p>good chapter</p></article></body></html>`)

	var seen []ResultStatus
	results, err := ConvertAll(context.Background(), plan, Extractor{}, 2, func(res Result) {
		seen = append(seen, res.Status)
	})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, []ResultStatus{ResultFailed, ResultConverted}, seen)
	assert.FileExists(t, plan.TransformLogPath())

	logData, err := os.ReadFile(plan.TransformLogPath())
	require.NoError(t, err)
	assert.Contains(t, string(logData), "chapter 001")
}

func TestConvertAllNothingConvertedLeavesNoEmptyDir(t *testing.T) {
	plan := runPlan(t)

	results, err := ConvertAll(context.Background(), plan, Extractor{}, 2, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, ResultMissing, results[0].Status)

	_, statErr := os.Stat(plan.DocDir())
	assert.True(t, os.IsNotExist(statErr))
}

func TestConvertAllCancelledStopsEarly(t *testing.T) {
	plan := runPlan(t)
	writeRaw(t, plan, 1, `<html><body><article><h1>One</h1><p>text</p></article></body></html>`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := ConvertAll(ctx, plan, Extractor{}, 1, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, results)
}
