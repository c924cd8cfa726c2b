package search

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rendis/nodeforge/pkg/schema"
)

//go:embed pininfo.yaml
var pinInfoYAML []byte

type pinEntry struct {
	Names          []string `yaml:"names"`
	schema.PinInfo `yaml:",inline"`
}

type pinNode struct {
	Name    string     `yaml:"name"`
	Aliases []string   `yaml:"aliases"`
	Pins    []pinEntry `yaml:"pins"`
}

func (n *pinNode) keys() []string { return append([]string{n.Name}, n.Aliases...) }

// PinDB answers static pin metadata questions about well-known nodes.
type PinDB struct {
	nodes []*pinNode
}

// LoadPinDB decodes a pin database.
func LoadPinDB(data []byte) (*PinDB, error) {
	var raw struct {
		Nodes []*pinNode `yaml:"nodes"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, schema.NewError(schema.ErrCodeValidation, "invalid pin database").WithCause(err)
	}
	for _, n := range raw.Nodes {
		if n.Name == "" {
			return nil, schema.NewError(schema.ErrCodeValidation, "pin database node without name")
		}
	}
	return &PinDB{nodes: raw.Nodes}, nil
}

var defaultPinDB = func() *PinDB {
	db, err := LoadPinDB(pinInfoYAML)
	if err != nil {
		panic(fmt.Sprintf("search: embedded pin database: %v", err))
	}
	return db
}()

// DefaultPinDB returns the embedded pin database.
func DefaultPinDB() *PinDB { return defaultPinDB }

// Lookup finds pin metadata. Node names match exactly, then with spaces
// removed, then case-insensitively; pin names match exactly, then
// case-insensitively.
func (db *PinDB) Lookup(nodeName, pinName string) schema.PinInfoResult {
	res := schema.PinInfoResult{NodeName: nodeName, PinName: pinName}

	node := db.findNode(nodeName)
	if node != nil {
		if info, ok := node.findPin(pinName); ok {
			res.Success = true
			res.PinInfo = &info
			res.Message = fmt.Sprintf("Found pin information for '%s' on node '%s'", pinName, nodeName)
			return res
		}
	}

	res.Error = fmt.Sprintf("No pin information found for '%s' on node '%s'", pinName, nodeName)
	if node != nil {
		for _, p := range node.Pins {
			res.AvailablePins = append(res.AvailablePins, p.Names...)
		}
	} else {
		res.AvailableNodes = db.Nodes()
	}
	return res
}

// Nodes lists every node name and alias the database knows.
func (db *PinDB) Nodes() []string {
	var out []string
	for _, n := range db.nodes {
		out = append(out, n.keys()...)
	}
	return out
}

func (db *PinDB) findNode(name string) *pinNode {
	compact := strings.ReplaceAll(name, " ", "")
	for _, want := range []string{name, compact} {
		for _, n := range db.nodes {
			for _, k := range n.keys() {
				if k == want {
					return n
				}
			}
		}
	}
	for _, n := range db.nodes {
		for _, k := range n.keys() {
			if strings.EqualFold(k, name) || strings.EqualFold(strings.ReplaceAll(k, " ", ""), compact) {
				return n
			}
		}
	}
	return nil
}

func (n *pinNode) findPin(name string) (schema.PinInfo, bool) {
	for _, p := range n.Pins {
		for _, pn := range p.Names {
			if pn == name {
				return p.PinInfo, true
			}
		}
	}
	for _, p := range n.Pins {
		for _, pn := range p.Names {
			if strings.EqualFold(pn, name) {
				return p.PinInfo, true
			}
		}
	}
	return schema.PinInfo{}, false
}
