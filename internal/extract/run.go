package extract

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/brogergvhs/storyd/internal/document"
	"github.com/brogergvhs/storyd/internal/story"
	"github.com/brogergvhs/storyd/internal/util"
)

type ResultStatus string

const (
	ResultConverted ResultStatus = "converted"
	ResultMissing   ResultStatus = "missing-raw"
	ResultFailed    ResultStatus = "failed"
)

// Result is the per-chapter outcome of the transform phase.
type Result struct {
	Index  int
	Path   string
	Status ResultStatus
	Err    error
}

// Strategy is anything that can extract a normalized document from raw
// chapter markup.
type Strategy interface {
	Extract(markup []byte) (*document.Document, error)
}

// ConvertAll runs extraction for chapters 1..total in manifest-index order.
// A chapter that fails or has no raw file is recorded and skipped; it never
// blocks the others. Output files are overwritten wholesale.
func ConvertAll(ctx context.Context, plan story.Plan, strategy Strategy, total int, onResult func(Result)) ([]Result, error) {
	if err := os.MkdirAll(plan.DocDir(), 0755); err != nil {
		return nil, err
	}
	util.CleanupStrayTemp(plan.DocDir())

	tlog := &transformLog{path: plan.TransformLogPath()}
	results := make([]Result, 0, total)

	for index := 1; index <= total; index++ {
		select {
		case <-ctx.Done():
			return results, ctx.Err()
		default:
		}

		res := convertOne(plan, strategy, index)
		if res.Status == ResultFailed {
			tlog.append(res)
		}

		results = append(results, res)
		if onResult != nil {
			onResult(res)
		}
	}

	util.RemoveIfEmpty(plan.DocDir())

	return results, nil
}

func convertOne(plan story.Plan, strategy Strategy, index int) Result {
	res := Result{Index: index, Path: plan.DocPath(index)}

	raw, err := os.ReadFile(plan.RawPath(index))
	if err != nil {
		if os.IsNotExist(err) {
			res.Status = ResultMissing
			return res
		}
		res.Status = ResultFailed
		res.Err = err
		return res
	}

	doc, err := strategy.Extract(raw)
	if err != nil {
		res.Status = ResultFailed
		res.Err = err
		return res
	}

	if err := util.WriteFileAtomic(res.Path, []byte(doc.Markdown()), 0644); err != nil {
		res.Status = ResultFailed
		res.Err = err
		return res
	}

	res.Status = ResultConverted
	return res
}

type transformLog struct {
	mu   sync.Mutex
	path string
}

func (l *transformLog) append(res Result) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	defer func() {
		_ = f.Close()
	}()

	ts := time.Now().Format("2006-01-02T15:04:05")
	fmt.Fprintf(f, "%s ERROR chapter %03d -> %v\n", ts, res.Index, res.Err)
}
