package frontmatter_test

import (
	"errors"
	"testing"

	"scenevitals/internal/frontmatter"
)

type meta struct {
	Scene string `yaml:"scene"`
	Verts int    `yaml:"verts"`
}

func TestRoundtrip(t *testing.T) {
	body := "# Courtyard\n\nno warnings\n"
	data, err := frontmatter.Write(meta{Scene: "Courtyard", Verts: 2400}, body)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	var got meta
	gotBody, err := frontmatter.Decode(data, &got)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Scene != "Courtyard" || got.Verts != 2400 {
		t.Errorf("meta = %+v", got)
	}
	if string(gotBody) != body {
		t.Errorf("body mismatch: got %q want %q", gotBody, body)
	}
}

func TestParseCRLF(t *testing.T) {
	fm, body, err := frontmatter.Parse([]byte("---\r\nscene: Dock\r\n---\r\nhello\r\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if string(fm) != "scene: Dock\n" {
		t.Errorf("fm = %q", fm)
	}
	if string(body) != "hello\n" {
		t.Errorf("body = %q", body)
	}
}

func TestParseEmptyBlock(t *testing.T) {
	fm, body, err := frontmatter.Parse([]byte("---\n---\nbody"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(fm) != 0 || string(body) != "body" {
		t.Errorf("fm = %q body = %q", fm, body)
	}
}

func TestParseMissingOpen(t *testing.T) {
	_, _, err := frontmatter.Parse([]byte("no delimiter"))
	if !errors.Is(err, frontmatter.ErrNoOpening) {
		t.Fatalf("err = %v, want ErrNoOpening", err)
	}
}

func TestParseMissingClose(t *testing.T) {
	_, _, err := frontmatter.Parse([]byte("---\nscene: Dock\n"))
	if !errors.Is(err, frontmatter.ErrNoClosing) {
		t.Fatalf("err = %v, want ErrNoClosing", err)
	}
}

func TestDecodeBadYAML(t *testing.T) {
	var m meta
	if _, err := frontmatter.Decode([]byte("---\nverts: [\n---\n"), &m); err == nil {
		t.Fatal("expected unmarshal error")
	}
}

func TestWriteNoBody(t *testing.T) {
	data, err := frontmatter.Write(meta{Verts: 1}, "")
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	want := "---\nscene: \"\"\nverts: 1\n---\n"
	if string(data) != want {
		t.Errorf("got %q want %q", data, want)
	}
}
