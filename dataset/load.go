package dataset

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/rushteam/reclab/core"
)

// Event 是事件日志中的一条交互记录。
type Event struct {
	User      string
	Item      string
	Feedback  float64
	Timestamp int64
}

// Log 是按读取顺序排列的事件序列。
type Log []Event

// Users 返回每条事件的用户列。
func (l Log) Users() []string {
	out := make([]string, len(l))
	for i, e := range l {
		out[i] = e.User
	}
	return out
}

// Items 返回每条事件的物品列。
func (l Log) Items() []string {
	out := make([]string, len(l))
	for i, e := range l {
		out[i] = e.Item
	}
	return out
}

// LoadOptions 描述事件日志的格式。
type LoadOptions struct {
	// Fields 是各逻辑角色对应的列名；Header 为 false 时忽略，
	// 列顺序固定为 user, item, feedback, timestamp。
	Fields core.FieldNames

	// Separator 是列分隔符："," (ratings.csv)、"\t" (u.data)、"::" (ml-1m)
	Separator string

	// Header 表示第一行是列名
	Header bool
}

// MovieLensCSV 返回 ratings.csv 的读取配置。
func MovieLensCSV() LoadOptions {
	return LoadOptions{Fields: core.DefaultFieldNames(), Separator: ",", Header: true}
}

// Load 读取事件日志。
// Fields.Feedback 为空时反馈值取 1（隐式反馈）；Fields.Timestamp 为空时时间戳取 0。
func Load(r io.Reader, opts LoadOptions) (Log, error) {
	sep := opts.Separator
	if sep == "" {
		sep = ","
	}
	next := recordReader(r, sep)

	cols := columns{user: 0, item: 1, feedback: 2, timestamp: 3}
	if opts.Fields.Feedback == "" {
		cols.feedback = -1
	}
	if opts.Fields.Timestamp == "" {
		cols.timestamp = -1
	}
	line := 0
	if opts.Header {
		header, err := next()
		if err != nil {
			return nil, fmt.Errorf("dataset: read header: %w", err)
		}
		line++
		if cols, err = locate(header, opts.Fields); err != nil {
			return nil, err
		}
	}

	var log Log
	for {
		rec, err := next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("dataset: read line %d: %w", line+1, err)
		}
		line++
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		e, err := cols.parse(rec)
		if err != nil {
			return nil, core.Errorf(core.ModuleDataset, core.ErrorCodeInvalidInput, "line %d: %v", line, err)
		}
		log = append(log, e)
	}
	return log, nil
}

type columns struct {
	user, item, feedback, timestamp int
}

func locate(header []string, f core.FieldNames) (columns, error) {
	pos := func(name string, required bool) (int, error) {
		if name == "" && !required {
			return -1, nil
		}
		for i, h := range header {
			if strings.TrimSpace(h) == name {
				return i, nil
			}
		}
		return -1, core.Errorf(core.ModuleDataset, core.ErrorCodeInvalidInput, "column %q not found in header %v", name, header)
	}

	var (
		c   columns
		err error
	)
	if c.user, err = pos(f.User, true); err != nil {
		return c, err
	}
	if c.item, err = pos(f.Item, true); err != nil {
		return c, err
	}
	if c.feedback, err = pos(f.Feedback, false); err != nil {
		return c, err
	}
	if c.timestamp, err = pos(f.Timestamp, false); err != nil {
		return c, err
	}
	return c, nil
}

func (c columns) parse(rec []string) (Event, error) {
	field := func(i int) (string, error) {
		if i >= len(rec) {
			return "", fmt.Errorf("expected at least %d fields, got %d", i+1, len(rec))
		}
		return strings.TrimSpace(rec[i]), nil
	}

	var (
		e   Event
		err error
	)
	if e.User, err = field(c.user); err != nil {
		return e, err
	}
	if e.Item, err = field(c.item); err != nil {
		return e, err
	}
	e.Feedback = 1
	if c.feedback >= 0 {
		s, err := field(c.feedback)
		if err != nil {
			return e, err
		}
		if e.Feedback, err = strconv.ParseFloat(s, 64); err != nil {
			return e, fmt.Errorf("feedback %q: %w", s, err)
		}
		if math.IsNaN(e.Feedback) || math.IsInf(e.Feedback, 0) {
			return e, fmt.Errorf("feedback %q is not finite", s)
		}
	}
	if c.timestamp >= 0 {
		s, err := field(c.timestamp)
		if err != nil {
			return e, err
		}
		if e.Timestamp, err = strconv.ParseInt(s, 10, 64); err != nil {
			return e, fmt.Errorf("timestamp %q: %w", s, err)
		}
	}
	return e, nil
}

// recordReader 返回逐行读取记录的函数。
// 单字符分隔符走 encoding/csv，多字符分隔符（如 "::"）按行切分。
func recordReader(r io.Reader, sep string) func() ([]string, error) {
	if utf8.RuneCountInString(sep) == 1 {
		cr := csv.NewReader(bufio.NewReader(r))
		cr.Comma, _ = utf8.DecodeRuneInString(sep)
		cr.FieldsPerRecord = -1
		return cr.Read
	}
	sc := bufio.NewScanner(r)
	return func() ([]string, error) {
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return nil, err
			}
			return nil, io.EOF
		}
		return strings.Split(sc.Text(), sep), nil
	}
}
