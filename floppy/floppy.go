// Package floppy loads .ST raw-sector and .MSA compressed disk images into
// the flat byte payload the WD1772 controller addresses by LBA, per §6.
package floppy

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const bytesPerSector = 512

// Geometry describes a disk's sector layout.
type Geometry struct {
	Sides           int
	Tracks          int
	SectorsPerTrack int
}

// Image is a fully decoded disk image ready for the FDC to address by LBA.
type Image struct {
	Data           []byte
	Geometry       Geometry
	WriteProtected bool
	Path           string
}

// LoadError gives operation context for a failed image load.
type LoadError struct {
	Path      string
	Operation string
	Err       error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("floppy: %s %s: %v", e.Operation, e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Load reads a disk image from path, dispatching on extension.
func Load(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Operation: "read", Err: err}
	}

	writeProtected := false
	if info, statErr := os.Stat(path); statErr == nil {
		writeProtected = info.Mode().Perm()&0200 == 0
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".msa":
		img, err := decodeMSA(data)
		if err != nil {
			return nil, &LoadError{Path: path, Operation: "decode MSA", Err: err}
		}
		img.Path = path
		img.WriteProtected = writeProtected
		return img, nil
	default:
		geom, err := detectSTGeometry(len(data))
		if err != nil {
			return nil, &LoadError{Path: path, Operation: "detect geometry", Err: err}
		}
		return &Image{Data: data, Geometry: geom, WriteProtected: writeProtected, Path: path}, nil
	}
}

// FDCImage is the shape fdc.Image expects; kept here rather than importing
// the fdc package so floppy has no dependency on the bus-facing controller.
type FDCImage struct {
	Data            []byte
	Sides           int
	Tracks          int
	SectorsPerTrack int
	WriteProtected  bool
}

// ToFDCImage converts the decoded image into the flat shape fdc.Controller
// consumes.
func (img *Image) ToFDCImage() FDCImage {
	return FDCImage{
		Data:            img.Data,
		Sides:           img.Geometry.Sides,
		Tracks:          img.Geometry.Tracks,
		SectorsPerTrack: img.Geometry.SectorsPerTrack,
		WriteProtected:  img.WriteProtected,
	}
}

// detectSTGeometry performs the linear first-match-wins search over the
// candidate geometry space described in §6.
func detectSTGeometry(size int) (Geometry, error) {
	for sides := 1; sides <= 2; sides++ {
		for tracks := 79; tracks <= 82; tracks++ {
			for sectors := 8; sectors <= 12; sectors++ {
				if sides*tracks*sectors*bytesPerSector == size {
					return Geometry{Sides: sides, Tracks: tracks, SectorsPerTrack: sectors}, nil
				}
			}
		}
	}
	return Geometry{}, fmt.Errorf("no known geometry matches file size %d", size)
}

const (
	msaMagicHi = 0x0E
	msaMagicLo = 0x0F
	msaRLEMark = 0xE5
)

// decodeMSA unpacks a .MSA image per its 10-byte header and per-track RLE
// encoding (§6).
func decodeMSA(data []byte) (*Image, error) {
	if len(data) < 10 || data[0] != msaMagicHi || data[1] != msaMagicLo {
		return nil, fmt.Errorf("bad MSA magic")
	}
	sectorsPerTrack := int(binary.BigEndian.Uint16(data[2:4]))
	sides := int(binary.BigEndian.Uint16(data[4:6])) + 1
	startTrack := int(binary.BigEndian.Uint16(data[6:8]))
	endTrack := int(binary.BigEndian.Uint16(data[8:10]))
	if sectorsPerTrack <= 0 || sides <= 0 || endTrack < startTrack {
		return nil, fmt.Errorf("invalid MSA header")
	}

	trackBytes := sectorsPerTrack * bytesPerSector
	tracks := endTrack - startTrack + 1
	out := make([]byte, 0, tracks*sides*trackBytes)

	pos := 10
	for track := startTrack; track <= endTrack; track++ {
		for side := 0; side < sides; side++ {
			if pos+2 > len(data) {
				return nil, fmt.Errorf("truncated MSA at track %d side %d", track, side)
			}
			compressedSize := int(binary.BigEndian.Uint16(data[pos : pos+2]))
			pos += 2
			if pos+compressedSize > len(data) {
				return nil, fmt.Errorf("truncated MSA track data at track %d side %d", track, side)
			}
			chunk := data[pos : pos+compressedSize]
			pos += compressedSize

			if compressedSize == trackBytes {
				out = append(out, chunk...)
				continue
			}
			decoded, err := decodeRLETrack(chunk, trackBytes)
			if err != nil {
				return nil, fmt.Errorf("track %d side %d: %w", track, side, err)
			}
			out = append(out, decoded...)
		}
	}

	return &Image{
		Data: out,
		Geometry: Geometry{
			Sides:           sides,
			Tracks:          tracks,
			SectorsPerTrack: sectorsPerTrack,
		},
	}, nil
}

// decodeRLETrack expands a single track's RLE stream until trackBytes of
// output have been produced.
func decodeRLETrack(chunk []byte, trackBytes int) ([]byte, error) {
	out := make([]byte, 0, trackBytes)
	i := 0
	for len(out) < trackBytes {
		if i >= len(chunk) {
			return nil, fmt.Errorf("RLE stream exhausted before track size reached")
		}
		b := chunk[i]
		i++
		if b != msaRLEMark {
			out = append(out, b)
			continue
		}
		if i+3 > len(chunk) {
			return nil, fmt.Errorf("truncated RLE run")
		}
		value := chunk[i]
		count := int(binary.BigEndian.Uint16(chunk[i+1 : i+3]))
		i += 3
		for n := 0; n < count && len(out) < trackBytes; n++ {
			out = append(out, value)
		}
	}
	return out[:trackBytes], nil
}
