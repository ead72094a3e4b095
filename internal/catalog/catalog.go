// Package catalog loads seed files describing products and orders.
//
// A catalog stands in for the restock and checkout collaborators when the
// engine is run locally: it puts stock on products and creates PENDING
// orders. Both YAML and CUE inputs are checked against an embedded CUE
// schema before anything is decoded.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"

	"github.com/roach88/stockroom/internal/model"
)

//go:embed schema.cue
var schemaSource string

// Catalog is a validated seed file.
type Catalog struct {
	Products []model.Product
	Orders   []model.Order
}

// LoadError reports a catalog that failed to parse or validate.
type LoadError struct {
	File    string
	Message string
}

func (e *LoadError) Error() string {
	if e.File == "" {
		return "catalog: " + e.Message
	}
	return fmt.Sprintf("catalog %s: %s", e.File, e.Message)
}

type fileVariant struct {
	Name  string   `json:"name"`
	Stock []string `json:"stock"`
}

type fileProduct struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Mode        string        `json:"fulfillment_mode"`
	ServiceCode string        `json:"service_code"`
	MainStock   []string      `json:"main_stock"`
	Variants    []fileVariant `json:"variants"`
}

type fileLineItem struct {
	Product   string `json:"product"`
	Variant   string `json:"variant"`
	Quantity  int    `json:"quantity"`
	BuyerNote string `json:"buyer_note"`
}

type fileOrder struct {
	ID           string         `json:"id"`
	BuyerContact string         `json:"buyer_contact"`
	Amount       int64          `json:"amount"`
	LineItems    []fileLineItem `json:"line_items"`
}

type file struct {
	Products []fileProduct `json:"products"`
	Orders   []fileOrder   `json:"orders"`
}

// LoadFile reads a .yaml, .yml or .cue catalog.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(path, data)
}

// Parse validates data as a catalog. The format is chosen from name's
// extension; anything other than .cue is treated as YAML.
func Parse(name string, data []byte) (*Catalog, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile catalog schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Catalog"))

	var v cue.Value
	switch strings.ToLower(filepath.Ext(name)) {
	case ".cue":
		v = ctx.CompileBytes(data, cue.Filename(name))
	default:
		var raw map[string]any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, &LoadError{File: name, Message: err.Error()}
		}
		if raw == nil {
			raw = map[string]any{}
		}
		v = ctx.Encode(raw)
	}
	if err := v.Err(); err != nil {
		return nil, &LoadError{File: name, Message: formatCUEError(err)}
	}

	v = def.Unify(v)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, &LoadError{File: name, Message: formatCUEError(err)}
	}

	var f file
	if err := v.Decode(&f); err != nil {
		return nil, &LoadError{File: name, Message: formatCUEError(err)}
	}

	c, err := build(f)
	if err != nil {
		return nil, &LoadError{File: name, Message: err.Error()}
	}
	return c, nil
}

// formatCUEError flattens a CUE error list into one line per error.
func formatCUEError(err error) string {
	var msgs []string
	for _, e := range cueerrors.Errors(err) {
		msgs = append(msgs, e.Error())
	}
	if len(msgs) == 0 {
		return err.Error()
	}
	return strings.Join(msgs, "; ")
}

// build converts the decoded file into model documents and enforces the
// cross-entry rules the schema cannot express.
func build(f file) (*Catalog, error) {
	c := &Catalog{
		Products: make([]model.Product, 0, len(f.Products)),
		Orders:   make([]model.Order, 0, len(f.Orders)),
	}

	productIDs := make(map[string]bool)
	tokens := make(map[string]string)
	claim := func(owner string, units []string) ([]string, error) {
		out := make([]string, 0, len(units))
		for _, u := range units {
			u = model.NormalizeUnit(u)
			if u == "" {
				return nil, fmt.Errorf("%s: empty stock unit", owner)
			}
			if prev, ok := tokens[u]; ok {
				return nil, fmt.Errorf("%s: stock unit %q already listed under %s", owner, u, prev)
			}
			tokens[u] = owner
			out = append(out, u)
		}
		return out, nil
	}

	for _, fp := range f.Products {
		if productIDs[fp.ID] {
			return nil, fmt.Errorf("duplicate product id %q", fp.ID)
		}
		productIDs[fp.ID] = true

		p := model.Product{
			ID:          fp.ID,
			Name:        fp.Name,
			Mode:        model.FulfillmentMode(fp.Mode),
			ServiceCode: fp.ServiceCode,
		}
		if p.Mode == "" {
			p.Mode = model.ModeStocked
		}
		if p.Mode == model.ModeExternalAPI && p.ServiceCode == "" {
			return nil, fmt.Errorf("product %s: EXTERNAL_API requires service_code", fp.ID)
		}
		main, err := claim("product "+fp.ID, fp.MainStock)
		if err != nil {
			return nil, err
		}
		p.MainStock = main

		variantNames := make(map[string]bool)
		for _, fv := range fp.Variants {
			if variantNames[fv.Name] {
				return nil, fmt.Errorf("product %s: duplicate variant %q", fp.ID, fv.Name)
			}
			variantNames[fv.Name] = true
			stock, err := claim("product "+fp.ID+" variant "+fv.Name, fv.Stock)
			if err != nil {
				return nil, err
			}
			p.Variants = append(p.Variants, model.Variant{Name: fv.Name, Stock: stock})
		}
		c.Products = append(c.Products, p)
	}

	orderIDs := make(map[string]bool)
	for _, fo := range f.Orders {
		if orderIDs[fo.ID] {
			return nil, fmt.Errorf("duplicate order id %q", fo.ID)
		}
		orderIDs[fo.ID] = true

		o := model.Order{
			ID:           fo.ID,
			Status:       model.StatusPending,
			BuyerContact: fo.BuyerContact,
			Amount:       fo.Amount,
		}
		for _, fl := range fo.LineItems {
			o.LineItems = append(o.LineItems, model.LineItem{
				Product:      model.ProductRef{ProductID: fl.Product, VariantName: fl.Variant},
				Quantity:     fl.Quantity,
				AssignedData: []string{},
				BuyerNote:    fl.BuyerNote,
			})
		}
		c.Orders = append(c.Orders, o)
	}
	return c, nil
}
