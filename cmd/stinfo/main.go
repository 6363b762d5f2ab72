// Command stinfo inspects a .ST or .MSA floppy image and prints its
// decoded geometry, grounded on cmd/ie32to64's flag-driven single-file
// CLI shape.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/thebitculture/ase/floppy"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: stinfo <image.st|image.msa>\n\nPrints the decoded disk geometry.\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}

	path := flag.Arg(0)
	img, err := floppy.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("%s\n", path)
	fmt.Printf("  sides:            %d\n", img.Geometry.Sides)
	fmt.Printf("  tracks:           %d\n", img.Geometry.Tracks)
	fmt.Printf("  sectors/track:    %d\n", img.Geometry.SectorsPerTrack)
	fmt.Printf("  bytes:            %d\n", len(img.Data))
	fmt.Printf("  write protected:  %t\n", img.WriteProtected)
}
