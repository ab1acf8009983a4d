// Package entity 定义领域实体
package entity

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// descSeparator 描述串字段分隔符
const descSeparator = " | "

// ElementNode 单次解析得到的 UI 元素
type ElementNode struct {
	Text        string         `json:"text,omitempty"`
	ContentDesc string         `json:"content_desc,omitempty"`
	ResourceID  string         `json:"resource_id,omitempty"`
	XPath       string         `json:"xpath,omitempty"`
	ClassName   string         `json:"class_name,omitempty"`
	Bounds      []int          `json:"bounds"`
	Extra       map[string]any `json:"extra,omitempty"`
	Desc        string         `json:"desc"`
}

// ElementAttrs 构造 ElementNode 所需的原始属性
type ElementAttrs struct {
	Text        string
	ContentDesc string
	ResourceID  string
	XPath       string
	ClassName   string
	Bounds      []int
	Extra       map[string]any
}

// NewElementNode 创建元素节点，描述串在构造时一次性生成
func NewElementNode(attrs ElementAttrs) *ElementNode {
	bounds := attrs.Bounds
	if bounds == nil {
		bounds = []int{}
	}
	n := &ElementNode{
		Text:        clean(attrs.Text),
		ContentDesc: clean(attrs.ContentDesc),
		ResourceID:  clean(attrs.ResourceID),
		XPath:       clean(attrs.XPath),
		ClassName:   clean(attrs.ClassName),
		Bounds:      bounds,
		Extra:       attrs.Extra,
	}
	n.Desc = n.buildDesc()
	return n
}

// buildDesc 按固定字段顺序拼接描述串
func (n *ElementNode) buildDesc() string {
	parts := []string{
		"text=" + n.Text,
		"content_desc=" + n.ContentDesc,
		"resource_id=" + n.ResourceID,
		"xpath=" + n.XPath,
		"class_name=" + n.ClassName,
		"bounds=" + formatBounds(n.Bounds),
		"extra=" + formatExtra(n.Extra),
	}
	return strings.Join(parts, descSeparator)
}

// Fingerprint 返回描述串的内容指纹
func (n *ElementNode) Fingerprint() string {
	return Fingerprint(n.Desc)
}

// HasLabel 是否携带可读文本或无障碍描述
func (n *ElementNode) HasLabel() bool {
	return n.Text != "" || n.ContentDesc != ""
}

// String 便于日志输出
func (n *ElementNode) String() string {
	return "<ElementNode " + n.ClassName + " text='" + n.Text + "' id='" + n.ResourceID + "'>"
}

// Fingerprint 计算描述串的 MD5 十六进制指纹，作为向量库去重键
func Fingerprint(desc string) string {
	sum := md5.Sum([]byte(desc))
	return hex.EncodeToString(sum[:])
}

func formatBounds(bounds []int) string {
	items := make([]string, len(bounds))
	for i, b := range bounds {
		items[i] = strconv.Itoa(b)
	}
	return "[" + strings.Join(items, ", ") + "]"
}

// formatExtra 序列化 extra，map 键按字典序输出
func formatExtra(extra map[string]any) string {
	if len(extra) == 0 {
		return "{}"
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(extra); err != nil {
		return "{}"
	}
	return clean(buf.String())
}

// clean NFC 规范化并把控制字符与连续空白折叠为单个空格
func clean(s string) string {
	if s == "" {
		return ""
	}
	s = norm.NFC.String(s)

	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		if unicode.IsSpace(r) || unicode.IsControl(r) || r == unicode.ReplacementChar {
			if !space {
				b.WriteByte(' ')
				space = true
			}
			continue
		}
		b.WriteRune(r)
		space = false
	}
	return strings.TrimSpace(b.String())
}
