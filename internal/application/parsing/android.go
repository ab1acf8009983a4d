package parsing

import (
	"encoding/xml"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"self-heal-api/internal/domain/entity"
)

var digits = regexp.MustCompile(`\d+`)

// AndroidParser 解析 UIAutomator XML dump：
//
//	<hierarchy>
//	  <node text="" resource-id="" class="" bounds="[x1,y1][x2,y2]" ... />
//	</hierarchy>
type AndroidParser struct{}

// xmlElement 通用 XML 元素树
type xmlElement struct {
	XMLName  xml.Name
	Attrs    []xml.Attr   `xml:",any,attr"`
	Children []xmlElement `xml:",any"`
}

func (e *xmlElement) attr(name string) string {
	for _, a := range e.Attrs {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// Parse 按文档顺序为每个 <node> 元素生成一个节点
func (AndroidParser) Parse(dump string) ([]*entity.ElementNode, error) {
	var root xmlElement
	if err := xml.NewDecoder(strings.NewReader(dump)).Decode(&root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDump, err)
	}

	nodes := make([]*entity.ElementNode, 0, 64)
	var walk func(el *xmlElement, path string)
	walk = func(el *xmlElement, path string) {
		if el.XMLName.Local == "node" {
			nodes = append(nodes, entity.NewElementNode(entity.ElementAttrs{
				Text:        el.attr("text"),
				ContentDesc: el.attr("content-desc"),
				ResourceID:  el.attr("resource-id"),
				ClassName:   el.attr("class"),
				Bounds:      ParseBounds(el.attr("bounds")),
				XPath:       path,
			}))
		}

		tags := make([]string, len(el.Children))
		for i := range el.Children {
			tags[i] = el.Children[i].XMLName.Local
		}
		pb := newPathBuilder(path, tags)
		for i := range el.Children {
			child := &el.Children[i]
			walk(child, pb.next(child.XMLName.Local))
		}
	}
	walk(&root, "/"+root.XMLName.Local)

	return nodes, nil
}

// ParseBounds 将 "[50,1200][1030,1320]" 解析为 [50 1200 1030 1320]，格式不符时返回空切片
func ParseBounds(s string) []int {
	matches := digits.FindAllString(s, -1)
	if len(matches) != 4 {
		return []int{}
	}
	out := make([]int, 0, 4)
	for _, m := range matches {
		v, err := strconv.Atoi(m)
		if err != nil {
			return []int{}
		}
		out = append(out, v)
	}
	return out
}
