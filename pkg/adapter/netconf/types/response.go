package types

import (
	"errors"

	"github.com/beevik/etree"
)

// ErrRPCFailed marks an error reported by the device in an rpc-error
// element, as opposed to a transport failure. Callers use this distinction
// to separate content rejections (persistent) from connectivity problems
// (unknown outcome, possibly transient).
var ErrRPCFailed = errors.New("rpc failed")

// ErrCommitConfirmedUnsupported is returned by drivers that cannot issue
// a <commit> with a confirmed element. The session falls back to a plain
// commit in that case.
var ErrCommitConfirmedUnsupported = errors.New("confirmed commit not supported by driver")

type NetconfResponse struct {
	Doc *etree.Document
}

func NewNetconfResponse(doc *etree.Document) *NetconfResponse {
	return &NetconfResponse{
		Doc: doc,
	}
}

func (nr *NetconfResponse) DocAsString(indented bool) string {
	if nr.Doc == nil {
		return ""
	}
	doc := nr.Doc
	if !indented {
		doc = doc.Copy()
		doc.Unindent()
	}
	s, _ := doc.WriteToString()
	return s
}

// FindText returns the text of the first element matching the given xpath,
// or the empty string if no such element exists.
func (nr *NetconfResponse) FindText(xpath string) string {
	if nr.Doc == nil {
		return ""
	}
	e := nr.Doc.FindElement(xpath)
	if e == nil {
		return ""
	}
	return e.Text()
}
