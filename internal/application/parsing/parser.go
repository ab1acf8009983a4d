// Package parsing 将平台相关的页面 dump 解析为统一的元素节点序列
package parsing

import (
	"errors"
	"strconv"
	"strings"

	"self-heal-api/internal/domain/entity"
)

// ErrMalformedDump 页面 dump 无法解析
var ErrMalformedDump = errors.New("malformed page dump")

// Parser 页面结构解析器，实现必须无状态且可并发调用
type Parser interface {
	Parse(dump string) ([]*entity.ElementNode, error)
}

var parsers = map[entity.Platform]Parser{
	entity.PlatformAndroid: AndroidParser{},
	entity.PlatformWeb:     WebParser{},
}

// For 按平台选择解析器
func For(platform entity.Platform) (Parser, error) {
	p, ok := parsers[platform]
	if !ok {
		return nil, &entity.UnsupportedPlatformError{Value: string(platform)}
	}
	return p, nil
}

// Parse 解析平台字符串并执行解析
func Parse(platform, dump string) ([]*entity.ElementNode, error) {
	pf, err := entity.ParsePlatform(platform)
	if err != nil {
		return nil, err
	}
	p, err := For(pf)
	if err != nil {
		return nil, err
	}
	return p.Parse(dump)
}

// pathBuilder 生成 /a/b[2]/c 形式的位置 xpath，仅当同名兄弟多于一个时附带下标
type pathBuilder struct {
	parent string
	counts map[string]int
	seen   map[string]int
}

func newPathBuilder(parent string, siblingTags []string) *pathBuilder {
	counts := make(map[string]int, len(siblingTags))
	for _, tag := range siblingTags {
		counts[tag]++
	}
	return &pathBuilder{parent: parent, counts: counts, seen: make(map[string]int, len(counts))}
}

// next 返回下一个同级元素的路径，调用顺序须与文档顺序一致
func (b *pathBuilder) next(tag string) string {
	b.seen[tag]++
	var sb strings.Builder
	sb.WriteString(b.parent)
	sb.WriteByte('/')
	sb.WriteString(tag)
	if b.counts[tag] > 1 {
		sb.WriteByte('[')
		sb.WriteString(strconv.Itoa(b.seen[tag]))
		sb.WriteByte(']')
	}
	return sb.String()
}
