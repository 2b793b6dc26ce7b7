package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/woozymasta/shp2geojson/internal/crs"
	"github.com/woozymasta/shp2geojson/internal/geo"
	"github.com/woozymasta/shp2geojson/internal/resolver"
)

type ResolveCommand struct {
	WKT string `short:"w" long:"wkt" description:"WKT definition to resolve"`

	Args struct {
		PRJ string `positional-arg-name:"PRJ_FILE"`
	} `positional-args:"yes"`
}

func (c *ResolveCommand) Execute(_ []string) error {
	text := c.WKT
	switch {
	case text != "" && c.Args.PRJ != "":
		return errors.New("give either --wkt or a .prj file, not both")
	case text == "" && c.Args.PRJ == "":
		return errors.New("a .prj file or --wkt is required")
	case text == "":
		data, err := os.ReadFile(c.Args.PRJ)
		if err != nil {
			return err
		}
		text = strings.TrimPrefix(strings.TrimSpace(string(data)), "\ufeff")
	}

	_, catalog, err := environment(nil)
	if err != nil {
		return err
	}
	defer func() { _ = catalog.Close() }()

	def, err := crs.Parse(text)
	if err != nil {
		def = crs.Opaque(text)
	}

	r := resolver.New(catalog, resolver.WithMinConfidence(opts.MinConfidence))
	res := r.Resolve(def)
	if !res.Resolved() {
		fmt.Printf("%s: unresolved\n", def.Name())
		return nil
	}

	fmt.Printf("%s: %s (confidence %d, exact %t)\n%s\n",
		def.Name(), res, res.Confidence, res.Exact, geo.EPSGURN(res.Code))
	return nil
}
