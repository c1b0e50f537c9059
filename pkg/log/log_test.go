package log

import (
	"bytes"
	"io/ioutil"
	"log"
	"strings"
	"testing"
)

func BenchmarkLogger_Info(b *testing.B) {
	l := New(FTimestamp, ioutil.Discard, "test", 0)
	for i := 0; i < b.N; i++ {
		l.Info("test")
	}
}

func BenchmarkStdlogger(b *testing.B) {
	l := log.New(ioutil.Discard, "test", log.Ltime)
	for i := 0; i < b.N; i++ {
		l.Print("test")
	}
}

func Test_levelToString(t *testing.T) {
	tests := []struct {
		name  string
		level int
		want  string
	}{
		{"info", INFO, "INFO "},
		{"error", ERROR, "ERROR"},
		{"unknown", 1337, "?????"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := levelToString(tt.level); got != tt.want {
				t.Errorf("levelToString() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    int
		wantErr bool
	}{
		{"lower", "debug", DEBUG, false},
		{"upper", "WARN", WARN, false},
		{"padded", " info ", INFO, false},
		{"bad", "loud", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestLogger_writeOut(t *testing.T) {
	tests := []struct {
		name     string
		prefix   string
		minLevel int
		write    func(l *Logger)
		want     string
	}{
		{
			name:   "simple info",
			prefix: "TEST",
			write:  func(l *Logger) { l.Info("hello") },
			want:   "[INFO ] [TEST] hello\n",
		},
		{
			name:  "no prefix formatted",
			write: func(l *Logger) { l.Warnf("%d things", 3) },
			want:  "[WARN ] 3 things\n",
		},
		{
			name:     "below min level",
			prefix:   "TEST",
			minLevel: INFO,
			write:    func(l *Logger) { l.Debug("quiet") },
			want:     "",
		},
		{
			name:  "trailing newlines trimmed",
			write: func(l *Logger) { l.Error("line\r\n") },
			want:  "[ERROR] line\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := new(bytes.Buffer)
			l := New(0, buf, tt.prefix, tt.minLevel)
			tt.write(l)
			if buf.String() != tt.want {
				t.Errorf("Logger wrote %q, want %q", buf.String(), tt.want)
			}
		})
	}
}

func TestLogger_Clone(t *testing.T) {
	buf := new(bytes.Buffer)
	orig := New(0, buf, "ORIG", TRACE)
	clone := orig.Clone().SetPrefix("CLONE").SetMinLevel(WARN)

	orig.Info("from orig")
	clone.Info("dropped")
	clone.Warn("from clone")

	if orig.Prefix() != "ORIG" || orig.MinLevel() != TRACE {
		t.Errorf("Clone() modified the original logger")
	}

	want := "[INFO ] [ORIG] from orig\n[WARN ] [CLONE] from clone\n"
	if buf.String() != want {
		t.Errorf("shared output = %q, want %q", buf.String(), want)
	}
}

func TestLogger_ShowFile(t *testing.T) {
	buf := new(bytes.Buffer)
	New(FShowFile, buf, "", TRACE).Info("where am I")
	if !strings.Contains(buf.String(), "[log_test.go:") {
		t.Errorf("FShowFile did not include the caller: %q", buf.String())
	}
}

func TestLogger_Panic(t *testing.T) {
	buf := new(bytes.Buffer)
	l := New(0, buf, "", TRACE)
	defer func() {
		if r := recover(); r != "oh no 1" {
			t.Errorf("Panicf() panicked with %v, want %q", r, "oh no 1")
		}
		if !strings.HasPrefix(buf.String(), "[PANIC]") {
			t.Errorf("Panicf() did not log at PANIC level: %q", buf.String())
		}
	}()
	l.Panicf("oh no %d", 1)
}
