package entity

import "strings"

// 定位方式
const (
	ByID     = "id"
	ByText   = "text"
	ByDesc   = "desc"
	ByXPath  = "xpath"
	ByBounds = "bounds"
)

// Locator 测试用例定位元素的方式
type Locator struct {
	By    string `json:"by"`
	Value string `json:"value"`
}

// IsZero 定位是否为空
func (l Locator) IsZero() bool {
	return strings.TrimSpace(l.By) == "" && strings.TrimSpace(l.Value) == ""
}

// String 格式化为 by=value
func (l Locator) String() string {
	return l.By + "=" + l.Value
}

// LocatorFor 从元素推导最稳定的定位：resource_id → text → content_desc → xpath → bounds。
// 元素不携带任何可用字段时退回空文本定位。
func LocatorFor(n *ElementNode) *Locator {
	if n == nil {
		return nil
	}
	switch {
	case n.ResourceID != "":
		return &Locator{By: ByID, Value: n.ResourceID}
	case n.Text != "":
		return &Locator{By: ByText, Value: n.Text}
	case n.ContentDesc != "":
		return &Locator{By: ByDesc, Value: n.ContentDesc}
	case n.XPath != "":
		return &Locator{By: ByXPath, Value: n.XPath}
	case len(n.Bounds) == 4:
		return &Locator{By: ByBounds, Value: formatBounds(n.Bounds)}
	default:
		return &Locator{By: ByText, Value: n.Text}
	}
}
