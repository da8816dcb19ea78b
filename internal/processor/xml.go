package processor

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Namespaces used by Camunda modeler documents
const (
	nsBPMN    = "http://www.omg.org/spec/BPMN/20100524/MODEL"
	nsModeler = "http://camunda.org/schema/modeler/1.0"
	nsZeebe   = "http://camunda.org/schema/zeebe/1.0"
)

// yieldEvery bounds how many tokens are decoded between context checks
const yieldEvery = 512

var errNoDefinitions = errors.New("missing definitions root element")

// xmlVisitor receives start and end elements during a streaming walk
type xmlVisitor interface {
	root(el xml.StartElement) error
	start(el xml.StartElement, parentID string)
}

// walkXML streams contents, calling v for every element.
// parentID is the id attribute of the closest ancestor that has one.
func walkXML(ctx context.Context, contents string, v xmlVisitor) error {
	dec := xml.NewDecoder(strings.NewReader(contents))

	var ids []string
	sawRoot := false

	for n := 0; ; n++ {
		if n%yieldEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("invalid XML: %w", err)
		}

		switch el := tok.(type) {
		case xml.StartElement:
			if !sawRoot {
				if err := v.root(el); err != nil {
					return err
				}
				sawRoot = true
			} else {
				v.start(el, nearest(ids))
			}
			ids = append(ids, attr(el, "", "id"))
		case xml.EndElement:
			if len(ids) > 0 {
				ids = ids[:len(ids)-1]
			}
		}
	}

	if !sawRoot {
		return errNoDefinitions
	}
	return nil
}

func nearest(ids []string) string {
	for i := len(ids) - 1; i >= 0; i-- {
		if ids[i] != "" {
			return ids[i]
		}
	}
	return ""
}

// attr returns the value of the attribute space:local, or "" when absent.
// An empty space matches unqualified attributes.
func attr(el xml.StartElement, space, local string) string {
	for _, a := range el.Attr {
		if a.Name.Local == local && a.Name.Space == space {
			return a.Value
		}
	}
	return ""
}
