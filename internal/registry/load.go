package registry

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
)

// Load reads collection definitions from a directory of CUE files.
//
// Expected layout:
//
//	defaults: {
//		collectionType: "post"
//		pageSize:       10
//	}
//	collections: event: {
//		order:   "ASC"
//		orderBy: "field"
//		dateField: {key: "event_date", cast: "DATE"}
//		taxonomies: ["category"]
//	}
//
// The map key under collections is the collection type.
func Load(dir string) (*Registry, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("collections directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}

	files, err := findCUEFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no CUE files found in %s", dir)
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, fmt.Errorf("no CUE instances loaded from %s", dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, fmt.Errorf("loading CUE files: %w", inst.Err)
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, fmt.Errorf("building CUE value: %w", err)
	}

	return decode(value)
}

func decode(value cue.Value) (*Registry, error) {
	var collections []Collection

	colsVal := value.LookupPath(cue.ParsePath("collections"))
	if colsVal.Exists() {
		iter, err := colsVal.Fields()
		if err != nil {
			return nil, fmt.Errorf("iterating collections: %w", err)
		}
		for iter.Next() {
			var c Collection
			if err := iter.Value().Decode(&c); err != nil {
				return nil, fmt.Errorf("collection %q: %w", iter.Label(), err)
			}
			c.Type = iter.Label()
			collections = append(collections, c)
		}
	}
	if len(collections) == 0 {
		return nil, fmt.Errorf("no collections defined")
	}

	defaultType := ""
	pageSize := 0
	defaultsVal := value.LookupPath(cue.ParsePath("defaults"))
	if defaultsVal.Exists() {
		if v := defaultsVal.LookupPath(cue.ParsePath("collectionType")); v.Exists() {
			s, err := v.String()
			if err != nil {
				return nil, fmt.Errorf("defaults.collectionType: %w", err)
			}
			defaultType = s
		}
		if v := defaultsVal.LookupPath(cue.ParsePath("pageSize")); v.Exists() {
			n, err := v.Int64()
			if err != nil {
				return nil, fmt.Errorf("defaults.pageSize: %w", err)
			}
			pageSize = int(n)
		}
	}

	r := New(defaultType, collections...)
	r.SetPageSize(pageSize)
	return r, nil
}

func findCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
