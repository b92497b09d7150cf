package main

import (
	"bytes"
	_ "embed"
	"fmt"
	"go/format"
	"os"
	"text/template"

	"github.com/rs/zerolog/log"
)

type Variant struct {
	// Package is the package name.
	PackageName string

	// Name is the variant name: should be unique among variants.
	TypeName string

	// Path is the file path into which the generator will emit the code for this
	// variant.
	Path string

	ExtraImports string

	CommtypesPrefix string
}

func generate(v *Variant, code string) {
	tmpl, err := template.New("gen").Parse(code)
	if err != nil {
		log.Fatal().Err(err).Msg("template Parse")
	}

	var out bytes.Buffer
	err = tmpl.Execute(&out, v)
	if err != nil {
		log.Fatal().Err(err).Msg("template Execute")
	}

	formatted, err := format.Source(out.Bytes())
	if err != nil {
		println(out.String())
		log.Fatal().Err(err).Str("path", v.Path).Msg("format")
	}

	if err := os.WriteFile(v.Path, formatted, 0644); err != nil {
		log.Fatal().Err(err).Msg("WriteFile")
	}
}

func default_variant(fname, typeName, dirpath, packageName string, inCommtypes bool) *Variant {
	v := &Variant{
		PackageName: packageName,
		TypeName:    typeName,
		Path:        fmt.Sprintf("%s/%s_gen_serdeG.go", dirpath, fname),
	}
	if inCommtypes {
		v.ExtraImports = ""
		v.CommtypesPrefix = ""
	} else {
		v.ExtraImports = "\"igmp-stats/pkg/commtypes\""
		v.CommtypesPrefix = "commtypes."
	}
	return v
}

func gen_serde(fname, typeName, dirpath, packageName string, inCommtypes bool) {
	v := default_variant(fname, typeName, dirpath, packageName, inCommtypes)
	generate(v, serdeG)
}

func gen_serde_test(fname, typeName, dirpath, packageName string, inCommtypes bool) {
	v := default_variant(fname, typeName, dirpath, packageName, inCommtypes)
	v.Path = fmt.Sprintf("%s/%s_gen_serde_test.go", dirpath, fname)
	generate(v, serde_test)
}

func main() {
	commtypes_path := "../pkg/commtypes/"
	gen_serde("stats_event", "StatsEvent", commtypes_path, "commtypes", true)

	gen_serde_test("stats_event", "StatsEvent", commtypes_path, "commtypes", true)
}

//go:embed serdeG.tmpl
var serdeG string

//go:embed serde_test.tmpl
var serde_test string
