package cpc

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/net/html/charset"

	"github.com/andygrunwald/fuel-tracker/internal/models"
)

// Element names used by the CPC list price web service.
const (
	blockElement   = "tbTable"
	productElement = "產品名"
	priceElement   = "參考牌價"
	dateElement    = "牌價生效時間"
)

// Parse reads a CPC historical price document and returns one observation per
// well-formed <tbTable> block, in document order.
//
// Blocks with a missing field, a non-numeric or negative price or an
// unparseable timestamp are skipped. The decoder runs in non-strict mode so
// a bare "&" or a field missing its closing tag stays local to its block. An
// error is only returned when the document itself cannot be decoded, e.g. it
// ends inside an open element.
func Parse(r io.Reader) ([]models.PriceObservation, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel
	dec.Strict = false
	dec.Entity = xml.HTMLEntity

	var (
		results []models.PriceObservation
		fields  map[string]*strings.Builder
		current string
		inBlock bool
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decoding feed document: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == blockElement {
				inBlock = true
				fields = make(map[string]*strings.Builder, 3)
				current = ""
				continue
			}
			if inBlock {
				current = t.Name.Local
			}
		case xml.CharData:
			if !inBlock || current == "" {
				continue
			}
			b, ok := fields[current]
			if !ok {
				b = &strings.Builder{}
				fields[current] = b
			}
			b.Write(t)
		case xml.EndElement:
			if t.Name.Local == blockElement {
				if obs, ok := buildObservation(fields); ok {
					results = append(results, obs)
				}
				inBlock = false
				fields = nil
				current = ""
				continue
			}
			current = ""
		}
	}

	return results, nil
}

func buildObservation(fields map[string]*strings.Builder) (models.PriceObservation, bool) {
	product := fieldValue(fields, productElement)
	priceText := fieldValue(fields, priceElement)
	dateText := fieldValue(fields, dateElement)
	if product == "" || priceText == "" || dateText == "" {
		return models.PriceObservation{}, false
	}

	price, err := decimal.NewFromString(priceText)
	if err != nil || price.IsNegative() {
		return models.PriceObservation{}, false
	}

	effective, err := time.Parse(time.RFC3339, dateText)
	if err != nil {
		return models.PriceObservation{}, false
	}

	return models.PriceObservation{
		ProductName:   product,
		Price:         price,
		EffectiveDate: models.DateOf(effective),
	}, true
}

func fieldValue(fields map[string]*strings.Builder, name string) string {
	b, ok := fields[name]
	if !ok {
		return ""
	}
	return strings.TrimSpace(b.String())
}
