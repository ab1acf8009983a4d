package parsing

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"self-heal-api/internal/domain/entity"
)

// WebParser 解析 HTML DOM，只保留可能可交互的元素：
// a / button / input / 带 onclick / role="button"
type WebParser struct{}

// Parse 按文档顺序返回可交互元素，web 节点没有 bounds
func (WebParser) Parse(dump string) ([]*entity.ElementNode, error) {
	doc, err := html.Parse(strings.NewReader(dump))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDump, err)
	}

	var nodes []*entity.ElementNode
	var walk func(n *html.Node, path string)
	walk = func(n *html.Node, path string) {
		if n.Type == html.ElementNode && interactive(n) {
			nodes = append(nodes, entity.NewElementNode(entity.ElementAttrs{
				Text:        textContent(n),
				ContentDesc: firstNonEmpty(getAttr(n, "title"), getAttr(n, "aria-label")),
				ResourceID:  getAttr(n, "id"),
				ClassName:   className(n),
				XPath:       path,
			}))
		}

		var tags []string
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode {
				tags = append(tags, c.Data)
			}
		}
		pb := newPathBuilder(path, tags)
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode {
				walk(c, pb.next(c.Data))
			}
		}
	}
	walk(doc, "")

	if nodes == nil {
		nodes = []*entity.ElementNode{}
	}
	return nodes, nil
}

func interactive(n *html.Node) bool {
	switch n.Data {
	case "a", "button", "input":
		return true
	}
	if hasAttr(n, "onclick") {
		return true
	}
	return getAttr(n, "role") == "button"
}

// className 组合为 tag.cls1.cls2
func className(n *html.Node) string {
	classes := strings.Fields(getAttr(n, "class"))
	if len(classes) == 0 {
		return n.Data
	}
	return n.Data + "." + strings.Join(classes, ".")
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

func getAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// textContent 拼接所有后代文本，script/style 除外
func textContent(n *html.Node) string {
	var sb strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			sb.WriteString(n.Data)
		case n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style"):
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
