package signallog

import (
	"bufio"
	"compress/gzip"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"
)

// Entry is one fired signal or dispatched calendar event.
type Entry struct {
	Time    string             `json:"time"`
	Symbol  string             `json:"symbol"`
	Kind    string             `json:"kind"`
	Verdict string             `json:"verdict,omitempty"`
	Price   float64            `json:"price,omitempty"`
	Values  map[string]float64 `json:"values,omitempty"`
	Sent    bool               `json:"sent"`
}

// Log appends entries to one JSONL file per local day under dir.
type Log struct {
	mu  sync.Mutex
	dir string
	loc *time.Location
	now func() time.Time
}

func New(dir string, loc *time.Location) *Log {
	if dir == "" {
		dir = "logs"
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Log{dir: dir, loc: loc, now: time.Now}
}

// DirFromEnv returns MONITOR_LOG_DIR or "logs".
func DirFromEnv() string {
	if v := os.Getenv("MONITOR_LOG_DIR"); v != "" {
		return v
	}
	return "logs"
}

func (l *Log) dailyFilepath(t time.Time) string {
	return filepath.Join(l.dir, t.In(l.loc).Format("2006-01-02")+".txt")
}

func (l *Log) summaryFilepath(t time.Time) string {
	return filepath.Join(l.dir, "summary", t.In(l.loc).Format("2006-01-02")+".csv")
}

func (l *Log) Append(e Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now().In(l.loc)
	e.Time = now.Format("2006-01-02 15:04:05")
	p := l.dailyFilepath(now)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(f, string(b))
	return err
}

type aggRow struct {
	Kind, Verdict string
	Count, Sent   int
	First, Last   string
}

// SummarizeDay writes a CSV with one row per (kind, verdict) fired on t's local day.
// It returns "" when there was nothing logged that day.
func (l *Log) SummarizeDay(t time.Time) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.dailyFilepath(t))
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	defer f.Close()

	aggs := map[string]*aggRow{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			continue
		}
		key := e.Kind + "|" + e.Verdict
		row := aggs[key]
		if row == nil {
			row = &aggRow{Kind: e.Kind, Verdict: e.Verdict, First: e.Time}
			aggs[key] = row
		}
		row.Count++
		if e.Sent {
			row.Sent++
		}
		row.Last = e.Time
	}
	if err := sc.Err(); err != nil {
		return "", err
	}
	if len(aggs) == 0 {
		return "", nil
	}

	keys := make([]string, 0, len(aggs))
	for k := range aggs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	outPath := l.summaryFilepath(t)
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", err
	}
	out, err := os.Create(outPath)
	if err != nil {
		return "", err
	}
	defer out.Close()

	w := csv.NewWriter(out)
	if err := w.Write([]string{"kind", "verdict", "count", "sent", "first", "last"}); err != nil {
		return "", err
	}
	total := 0
	for _, k := range keys {
		r := aggs[k]
		if err := w.Write([]string{r.Kind, r.Verdict, strconv.Itoa(r.Count), strconv.Itoa(r.Sent), r.First, r.Last}); err != nil {
			return "", err
		}
		total += r.Count
	}
	_ = w.Write([]string{"TOTAL", "", strconv.Itoa(total), "", "", ""})
	w.Flush()
	return outPath, w.Error()
}

// CompressOlder gzips daily files last modified more than retentionDays ago.
func (l *Log) CompressOlder(retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}
	cutoff := l.now().AddDate(0, 0, -retentionDays)
	return filepath.WalkDir(l.dir, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() || filepath.Ext(p) != ".txt" {
			return nil
		}
		info, err := d.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			return nil
		}
		if err := gzipFile(p); err != nil {
			return fmt.Errorf("compress %s: %w", p, err)
		}
		return nil
	})
}

func gzipFile(p string) error {
	gz := p + ".gz"
	if _, err := os.Stat(gz); err == nil {
		return os.Remove(p)
	}
	in, err := os.Open(p)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(gz, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	gw := gzip.NewWriter(out)
	if _, err := io.Copy(gw, in); err != nil {
		_ = gw.Close()
		_ = out.Close()
		_ = os.Remove(gz)
		return err
	}
	if err := gw.Close(); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(p)
}
