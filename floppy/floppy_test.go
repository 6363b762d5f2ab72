package floppy

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

func TestDetectSTGeometryFirstMatchWins(t *testing.T) {
	size := 2 * 80 * 9 * bytesPerSector // 737280; no single-sided candidate matches, so {2 80 9} is the first match
	geom, err := detectSTGeometry(size)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if geom.Sides != 2 || geom.Tracks != 80 || geom.SectorsPerTrack != 9 {
		t.Fatalf("geometry = %+v, want {2 80 9}", geom)
	}
}

func TestDetectSTGeometryRejectsUnknownSize(t *testing.T) {
	if _, err := detectSTGeometry(123); err == nil {
		t.Fatal("expected an error for a size matching no candidate geometry")
	}
}

func TestLoadSTRawImageDeducesGeometryFromSize(t *testing.T) {
	size := 1 * 80 * 9 * bytesPerSector
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i)
	}
	path := filepath.Join(t.TempDir(), "disk.st")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}

	img, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if img.Geometry.Sides != 1 || img.Geometry.Tracks != 80 || img.Geometry.SectorsPerTrack != 9 {
		t.Fatalf("geometry = %+v, want {1 80 9}", img.Geometry)
	}
	if !bytes.Equal(img.Data, data) {
		t.Fatal("raw .ST image data must be copied verbatim")
	}
}

func TestLoadSTRawImageRejectsBadSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.st")
	if err := os.WriteFile(path, make([]byte, 12345), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for an unrecognized image size")
	}
}

func buildMSA(sectorsPerTrack, sidesMinusOne, startTrack, endTrack int, tracks [][]byte) []byte {
	var buf bytes.Buffer
	buf.WriteByte(msaMagicHi)
	buf.WriteByte(msaMagicLo)
	write16 := func(v int) {
		var b [2]byte
		binary.BigEndian.PutUint16(b[:], uint16(v))
		buf.Write(b[:])
	}
	write16(sectorsPerTrack)
	write16(sidesMinusOne)
	write16(startTrack)
	write16(endTrack)
	for _, raw := range tracks {
		buf.Write(raw)
	}
	return buf.Bytes()
}

func rawTrackChunk(compressedPayload []byte) []byte {
	var buf bytes.Buffer
	var sz [2]byte
	binary.BigEndian.PutUint16(sz[:], uint16(len(compressedPayload)))
	buf.Write(sz[:])
	buf.Write(compressedPayload)
	return buf.Bytes()
}

func TestDecodeMSAStoresUncompressedTrackVerbatim(t *testing.T) {
	sectorsPerTrack := 9
	trackBytes := sectorsPerTrack * bytesPerSector
	raw := bytes.Repeat([]byte{0xAB}, trackBytes)

	data := buildMSA(sectorsPerTrack, 0, 0, 0, [][]byte{rawTrackChunk(raw)})
	img, err := decodeMSA(data)
	if err != nil {
		t.Fatalf("decodeMSA: %v", err)
	}
	if img.Geometry.Sides != 1 || img.Geometry.SectorsPerTrack != 9 || img.Geometry.Tracks != 1 {
		t.Fatalf("geometry = %+v", img.Geometry)
	}
	if !bytes.Equal(img.Data, raw) {
		t.Fatal("raw-sized track must be copied without RLE decoding")
	}
}

func TestDecodeMSAExpandsRLERun(t *testing.T) {
	sectorsPerTrack := 1
	trackBytes := sectorsPerTrack * bytesPerSector

	var compressed bytes.Buffer
	compressed.WriteByte(msaRLEMark)
	compressed.WriteByte(0x55)
	var count [2]byte
	binary.BigEndian.PutUint16(count[:], uint16(trackBytes))
	compressed.Write(count[:])

	data := buildMSA(sectorsPerTrack, 0, 5, 5, [][]byte{rawTrackChunk(compressed.Bytes())})
	img, err := decodeMSA(data)
	if err != nil {
		t.Fatalf("decodeMSA: %v", err)
	}
	want := bytes.Repeat([]byte{0x55}, trackBytes)
	if !bytes.Equal(img.Data, want) {
		t.Fatal("RLE run did not expand to the expected repeated byte")
	}
}

func TestDecodeMSALiteralEscapeByteIsNotSpecial(t *testing.T) {
	sectorsPerTrack := 1
	trackBytes := sectorsPerTrack * bytesPerSector

	var compressed bytes.Buffer
	for compressed.Len() < trackBytes {
		compressed.WriteByte(0x42)
	}

	data := buildMSA(sectorsPerTrack, 0, 0, 0, [][]byte{rawTrackChunk(compressed.Bytes())})
	img, err := decodeMSA(data)
	if err != nil {
		t.Fatalf("decodeMSA: %v", err)
	}
	want := bytes.Repeat([]byte{0x42}, trackBytes)
	if !bytes.Equal(img.Data, want) {
		t.Fatal("literal bytes must pass through unchanged")
	}
}

func TestDecodeMSATwoSidesConcatenatesInOrder(t *testing.T) {
	sectorsPerTrack := 1
	trackBytes := sectorsPerTrack * bytesPerSector
	sideA := bytes.Repeat([]byte{0x01}, trackBytes)
	sideB := bytes.Repeat([]byte{0x02}, trackBytes)

	data := buildMSA(sectorsPerTrack, 1, 0, 0, [][]byte{rawTrackChunk(sideA), rawTrackChunk(sideB)})
	img, err := decodeMSA(data)
	if err != nil {
		t.Fatalf("decodeMSA: %v", err)
	}
	if img.Geometry.Sides != 2 {
		t.Fatalf("sides = %d, want 2", img.Geometry.Sides)
	}
	want := append(append([]byte{}, sideA...), sideB...)
	if !bytes.Equal(img.Data, want) {
		t.Fatal("side 0 then side 1 data must be concatenated in track-major order")
	}
}

func TestDecodeMSARejectsBadMagic(t *testing.T) {
	data := []byte{0x00, 0x00, 0, 9, 0, 0, 0, 0, 0, 0}
	if _, err := decodeMSA(data); err == nil {
		t.Fatal("expected an error for a bad MSA magic")
	}
}

func TestToFDCImageMapsGeometryFields(t *testing.T) {
	img := &Image{
		Data:           []byte{1, 2, 3},
		Geometry:       Geometry{Sides: 2, Tracks: 80, SectorsPerTrack: 9},
		WriteProtected: true,
	}
	fdcImg := img.ToFDCImage()
	if fdcImg.Sides != 2 || fdcImg.Tracks != 80 || fdcImg.SectorsPerTrack != 9 || !fdcImg.WriteProtected {
		t.Fatalf("FDCImage = %+v, want geometry+protection carried over", fdcImg)
	}
	if !bytes.Equal(fdcImg.Data, img.Data) {
		t.Fatal("Data slice must be carried over unchanged")
	}
}
