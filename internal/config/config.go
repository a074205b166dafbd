// Package config parses the hfn.json descriptor consumed once at
// startup and flattens it into the id-keyed projection the host
// receives back from init.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tzrikka/hfncore/internal/codec"
)

// File is the top-level shape of hfn.json.
type File struct {
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	AppID       string    `json:"appid"`
	Dev         DevConfig `json:"dev"`
	CreatedAt   string    `json:"createdAt"`
	Packages    []Package `json:"packages"`
}

// DevConfig carries the devtools relay URL used by gateway mode.
type DevConfig struct {
	Devtools string `json:"devtools"`
}

// Package is one package descriptor nested in hfn.json.
type Package struct {
	ID       int      `json:"id"`
	Name     string   `json:"name"`
	FullName string   `json:"fullName,omitempty"`
	Modules  []Module `json:"modules"`
	Schemas  []Schema `json:"schemas"`
	Rpcs     []Rpc    `json:"rpcs"`
}

// Module is one module nested under a package.
type Module struct {
	ID     int     `json:"id"`
	Name   string  `json:"name"`
	Models []Model `json:"models"`
	Hfns   []Hfn   `json:"hfns"`
}

// Model is a data model exposed by a module.
type Model struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	SchemaID int    `json:"schemaId"`
}

// Hfn is a callable function exposed by a module.
type Hfn struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	SchemaID int    `json:"schemaId"`
}

// Schema describes the shape of a model, hfn argument, or rpc payload.
type Schema struct {
	ID     int     `json:"id"`
	Fields []Field `json:"fields"`
}

// Field is one field of a schema.
type Field struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Type    string `json:"type"`
	IsArray bool   `json:"isArray"`
}

// Rpc is a remote procedure exposed by a package.
type Rpc struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	ReqSchemaID int    `json:"reqSchemaId"`
	ResSchemaID int    `json:"resSchemaId"`
}

// Load reads and parses the config file at path.
func Load(path string) (File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read config file %q: %w", path, err)
	}

	var f File
	if err := json.Unmarshal(b, &f); err != nil {
		return File{}, fmt.Errorf("parse config file %q: %w", path, err)
	}
	return f, nil
}

// ResolvePath applies the env > arg > default cascade described in the
// external interfaces: HFN_CONFIG_PATH, then the explicit path passed
// through init args, then ./hfn.json.
func ResolvePath(argPath string) string {
	if env := os.Getenv("HFN_CONFIG_PATH"); env != "" {
		return env
	}
	if argPath != "" {
		return argPath
	}
	return "./hfn.json"
}

// Project flattens f into the seven id-keyed lists the host receives
// from init, each rendered as a codec.Value map so it travels over the
// wire byte-for-byte as received, opaque to everything except the
// host.
func Project(f File) (packages, modules, models, hfns, rpcs, schemas, fields []codec.Value) {
	packages = make([]codec.Value, 0, len(f.Packages))
	modules = []codec.Value{}
	models = []codec.Value{}
	hfns = []codec.Value{}
	rpcs = []codec.Value{}
	schemas = []codec.Value{}
	fields = []codec.Value{}

	for _, pkg := range f.Packages {
		pkgVal := map[string]codec.Value{
			"id":   int64(pkg.ID),
			"name": pkg.Name,
		}
		if pkg.FullName != "" {
			pkgVal["fullName"] = pkg.FullName
		}
		packages = append(packages, pkgVal)

		for _, mod := range pkg.Modules {
			modules = append(modules, map[string]codec.Value{
				"id":        int64(mod.ID),
				"name":      mod.Name,
				"packageId": int64(pkg.ID),
			})

			for _, m := range mod.Models {
				models = append(models, map[string]codec.Value{
					"id":        int64(m.ID),
					"name":      m.Name,
					"schemaId":  int64(m.SchemaID),
					"moduleId":  int64(mod.ID),
					"packageId": int64(pkg.ID),
				})
			}
			for _, h := range mod.Hfns {
				hfns = append(hfns, map[string]codec.Value{
					"id":        int64(h.ID),
					"name":      h.Name,
					"schemaId":  int64(h.SchemaID),
					"moduleId":  int64(mod.ID),
					"packageId": int64(pkg.ID),
				})
			}
		}

		for _, s := range pkg.Schemas {
			schemas = append(schemas, map[string]codec.Value{
				"id":        int64(s.ID),
				"packageId": int64(pkg.ID),
			})
			for _, fl := range s.Fields {
				fields = append(fields, map[string]codec.Value{
					"id":        int64(fl.ID),
					"name":      fl.Name,
					"type":      fl.Type,
					"isArray":   fl.IsArray,
					"schemaId":  int64(s.ID),
					"packageId": int64(pkg.ID),
				})
			}
		}

		for _, r := range pkg.Rpcs {
			rpcs = append(rpcs, map[string]codec.Value{
				"id":          int64(r.ID),
				"name":        r.Name,
				"reqSchemaId": int64(r.ReqSchemaID),
				"resSchemaId": int64(r.ResSchemaID),
				"packageId":   int64(pkg.ID),
			})
		}
	}

	return packages, modules, models, hfns, rpcs, schemas, fields
}
