package filetransfer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ImaginaryLogs/CSNETWK-MCO3/internal/logging"
)

func TestPlanChunks(t *testing.T) {
	plan := PlanChunks(3172)
	if plan.TotalChunks != 4 {
		t.Fatalf("expected 4 chunks for 3172 bytes, got %d", plan.TotalChunks)
	}
}

func TestFiletypeForName(t *testing.T) {
	if got := FiletypeForName("photo.png"); got != "image/png" {
		t.Fatalf("got %q", got)
	}
	if got := FiletypeForName("weird.xyz"); got != defaultFiletype {
		t.Fatalf("got %q, want default", got)
	}
}

func TestOfferAcceptChunkReassemble(t *testing.T) {
	dir := t.TempDir()
	e := NewEngine(dir, logging.New())

	tr, created := e.HandleOffer(OfferParams{
		FileID: "f1", Sender: "alice@10.0.0.2", Filename: "note.txt", Filesize: 10,
	})
	if !created || tr.State() != Offered {
		t.Fatalf("expected new Offered transfer")
	}

	if err := e.Accept("f1", 2, 5); err != nil {
		t.Fatalf("Accept: %v", err)
	}

	if res, err := e.HandleChunk(ChunkParams{FileID: "f1", ChunkIndex: 0, TotalChunks: 2, Data: []byte("hello")}); err != nil || res != nil {
		t.Fatalf("unexpected completion on first chunk: %v %v", res, err)
	}

	res, err := e.HandleChunk(ChunkParams{FileID: "f1", ChunkIndex: 1, TotalChunks: 2, Data: []byte("world")})
	if err != nil {
		t.Fatalf("HandleChunk: %v", err)
	}
	if res == nil {
		t.Fatal("expected reassembly result on final chunk")
	}

	data, err := os.ReadFile(res.Path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "helloworld" {
		t.Fatalf("got %q, want helloworld", data)
	}
}

func TestDuplicateOfferIsDropped(t *testing.T) {
	e := NewEngine(t.TempDir(), logging.New())
	_, created := e.HandleOffer(OfferParams{FileID: "f1", Sender: "a@1.2.3.4", Filename: "x"})
	if !created {
		t.Fatal("expected first offer to be created")
	}
	_, created = e.HandleOffer(OfferParams{FileID: "f1", Sender: "a@1.2.3.4", Filename: "x"})
	if created {
		t.Fatal("expected duplicate offer to be dropped")
	}
}

func TestChunkForUnknownFileIDIsDropped(t *testing.T) {
	e := NewEngine(t.TempDir(), logging.New())
	res, err := e.HandleChunk(ChunkParams{FileID: "nope", ChunkIndex: 0, TotalChunks: 1, Data: []byte("x")})
	if err != nil || res != nil {
		t.Fatalf("expected silent drop, got %v %v", res, err)
	}
}

func TestFilesizeMismatchAbortsWithoutWriting(t *testing.T) {
	dir := t.TempDir()
	e := NewEngine(dir, logging.New())

	e.HandleOffer(OfferParams{FileID: "f2", Sender: "a@1.2.3.4", Filename: "x.txt", Filesize: 999})
	if err := e.Accept("f2", 1, 5); err != nil {
		t.Fatalf("Accept: %v", err)
	}

	_, err := e.HandleChunk(ChunkParams{FileID: "f2", ChunkIndex: 0, TotalChunks: 1, Data: []byte("short")})
	if err == nil {
		t.Fatal("expected size-mismatch error")
	}

	if _, statErr := os.Stat(filepath.Join(dir, "a@1.2.3.4", "downloads", "x.txt")); !os.IsNotExist(statErr) {
		t.Fatal("file must not be written on size mismatch")
	}
}

func TestFilenameCollisionSuffixed(t *testing.T) {
	dir := t.TempDir()
	downloadsDir := filepath.Join(dir, "a@1.2.3.4", "downloads")
	if err := os.MkdirAll(downloadsDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(downloadsDir, "note.txt"), []byte("existing"), 0o644); err != nil {
		t.Fatal(err)
	}

	e := NewEngine(dir, logging.New())
	e.HandleOffer(OfferParams{FileID: "f3", Sender: "a@1.2.3.4", Filename: "note.txt", Filesize: 5})
	e.Accept("f3", 1, 5)

	res, err := e.HandleChunk(ChunkParams{FileID: "f3", ChunkIndex: 0, TotalChunks: 1, Data: []byte("hello")})
	if err != nil || res == nil {
		t.Fatalf("HandleChunk: %v %v", res, err)
	}
	if filepath.Base(res.Path) != "note(1).txt" {
		t.Fatalf("got %q, want note(1).txt", res.Path)
	}
}

func TestEncodeDecodeChunkRoundTrip(t *testing.T) {
	data := []byte("some binary-ish payload \x00\x01\x02")
	encoded := EncodeChunk(data)
	decoded, err := DecodeChunk(encoded)
	if err != nil {
		t.Fatalf("DecodeChunk: %v", err)
	}
	if string(decoded) != string(data) {
		t.Fatalf("round trip mismatch")
	}
}
