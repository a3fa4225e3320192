package printer

import (
	"bytes"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/hay-kot/criterio"
	"github.com/stretchr/testify/assert"
)

func TestPrinter_MessagePlain(t *testing.T) {
	var buf bytes.Buffer
	p := NewPlain(&buf)
	ts := time.Date(2024, 1, 15, 9, 30, 0, 0, time.Local)

	p.Message(MessageLine{Sender: "ann@example.com", Timestamp: ts, Content: "hi", Boundary: true, Local: true, HasImage: true})
	p.Message(MessageLine{Sender: "ann@example.com", Timestamp: ts, Content: "two\nlines"})
	p.Message(MessageLine{Sender: "bob@example.com", Timestamp: ts, Content: "yo", Boundary: true, Pending: true})

	want := "◉ ann@example.com (you) 09:30\n" +
		"  hi\n" +
		"  two\n" +
		"  lines\n" +
		"○ bob@example.com 09:30\n" +
		"  yo …\n"
	assert.Equal(t, want, buf.String())
}

func TestPrinter_WarnfAndBold(t *testing.T) {
	var buf bytes.Buffer
	New(&buf).Warnf("%d issue(s)", 2)
	assert.Equal(t, ColorYellow+Dot+" 2 issue(s)"+ColorReset+"\n", buf.String())
	assert.Equal(t, ColorBold+"Summary:"+ColorReset, New(&buf).Bold("Summary:"))

	buf.Reset()
	plain := NewPlain(&buf)
	plain.Warnf("%d issue(s)", 2)
	assert.Equal(t, Dot+" 2 issue(s)\n", buf.String())
	assert.Equal(t, "Summary:", plain.Bold("Summary:"))
}

func TestPrinter_FatalErrorFieldErrors(t *testing.T) {
	var buf bytes.Buffer
	p := NewPlain(&buf)

	var errs criterio.FieldErrorsBuilder
	errs = errs.Append("relay.url", errors.New("host is required"))
	p.FatalError(fmt.Errorf("load config: %w", errs.ToError()))

	out := buf.String()
	assert.Contains(t, out, "Validation Error")
	assert.Contains(t, out, "load config")
	assert.Contains(t, out, "relay.url: host is required")
}

func TestPrinter_FatalErrorPlain(t *testing.T) {
	var buf bytes.Buffer
	New(&buf).FatalError(errors.New("boom"))
	assert.Contains(t, buf.String(), "boom")
	assert.Contains(t, buf.String(), ColorRed)

	buf.Reset()
	New(&buf).FatalError(nil)
	assert.Empty(t, buf.String())
}
