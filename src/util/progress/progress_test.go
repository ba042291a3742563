package progress_test

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"zgit/src/util/progress"
)

func TestReader_CountsAndFinishes(t *testing.T) {
	var out bytes.Buffer
	r := progress.NewReader(strings.NewReader("0123456789"), 10, "tank/a@s1", &out)
	b, err := io.ReadAll(r)
	if err != nil || len(b) != 10 {
		t.Fatalf("ReadAll = %d %v", len(b), err)
	}
	if r.BytesRead() != 10 {
		t.Fatalf("BytesRead = %d", r.BytesRead())
	}
	s := out.String()
	if !strings.Contains(s, "[tank/a@s1] 100.0% (10/10 bytes)") || !strings.HasSuffix(s, "\n") {
		t.Fatalf("output = %q", s)
	}
	if strings.Count(s, "\n") != 1 {
		t.Fatalf("final line printed more than once: %q", s)
	}
}

func TestReader_UnknownTotal(t *testing.T) {
	var out bytes.Buffer
	_, _ = io.ReadAll(progress.NewReader(strings.NewReader("abc"), 0, "stream", &out))
	if !strings.Contains(out.String(), "[stream] 3 bytes") {
		t.Fatalf("output = %q", out.String())
	}
}
