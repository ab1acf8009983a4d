package parsing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"self-heal-api/internal/domain/entity"
)

const androidDump = `<?xml version="1.0" encoding="UTF-8"?>
<hierarchy rotation="0">
  <node index="0" text="" resource-id="" class="android.widget.FrameLayout" bounds="[0,0][1080,2340]">
    <node index="0" text="Submit" resource-id="com.shop:id/btn_submit" class="android.widget.Button" content-desc="" bounds="[50,1200][1030,1320]"/>
    <node index="1" text="Cancel" resource-id="" class="android.widget.Button" content-desc="cancel order" bounds="broken"/>
  </node>
</hierarchy>`

func TestAndroidParser_Parse(t *testing.T) {
	nodes, err := AndroidParser{}.Parse(androidDump)
	require.NoError(t, err)
	require.Len(t, nodes, 3)

	assert.Equal(t, "/hierarchy/node", nodes[0].XPath)
	assert.Equal(t, []int{0, 0, 1080, 2340}, nodes[0].Bounds)

	submit := nodes[1]
	assert.Equal(t, "Submit", submit.Text)
	assert.Equal(t, "com.shop:id/btn_submit", submit.ResourceID)
	assert.Equal(t, "android.widget.Button", submit.ClassName)
	assert.Equal(t, "/hierarchy/node/node[1]", submit.XPath)
	assert.Equal(t, []int{50, 1200, 1030, 1320}, submit.Bounds)

	cancel := nodes[2]
	assert.Equal(t, "cancel order", cancel.ContentDesc)
	assert.Equal(t, "/hierarchy/node/node[2]", cancel.XPath)
	assert.Empty(t, cancel.Bounds)
	assert.NotNil(t, cancel.Bounds)
}

func TestAndroidParser_Deterministic(t *testing.T) {
	first, err := AndroidParser{}.Parse(androidDump)
	require.NoError(t, err)
	second, err := AndroidParser{}.Parse(androidDump)
	require.NoError(t, err)

	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].Desc, second[i].Desc)
	}
}

func TestAndroidParser_Malformed(t *testing.T) {
	_, err := AndroidParser{}.Parse(`<hierarchy><node text="x">`)
	assert.ErrorIs(t, err, ErrMalformedDump)
}

func TestParseBounds(t *testing.T) {
	tests := []struct {
		in   string
		want []int
	}{
		{"[50,1200][1030,1320]", []int{50, 1200, 1030, 1320}},
		{"[0,0][0,0]", []int{0, 0, 0, 0}},
		{"", []int{}},
		{"[1,2]", []int{}},
		{"garbage", []int{}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseBounds(tt.in), tt.in)
	}
}

const webDump = `<html><body>
  <div class="nav">
    <a id="home" href="/">  Home
      page </a>
    <a class="link primary" title="Cart">Cart</a>
  </div>
  <span>static</span>
  <div role="button" aria-label="Close">x</div>
  <input id="q" type="text">
  <p onclick="go()">Go<script>var a = 1;</script></p>
</body></html>`

func TestWebParser_Parse(t *testing.T) {
	nodes, err := WebParser{}.Parse(webDump)
	require.NoError(t, err)
	require.Len(t, nodes, 5)

	home := nodes[0]
	assert.Equal(t, "Home page", home.Text)
	assert.Equal(t, "home", home.ResourceID)
	assert.Equal(t, "a", home.ClassName)
	assert.Equal(t, "/html/body/div[1]/a[1]", home.XPath)
	assert.Empty(t, home.Bounds)

	cart := nodes[1]
	assert.Equal(t, "Cart", cart.ContentDesc)
	assert.Equal(t, "a.link.primary", cart.ClassName)
	assert.Equal(t, "/html/body/div[1]/a[2]", cart.XPath)

	closeBtn := nodes[2]
	assert.Equal(t, "Close", closeBtn.ContentDesc)
	assert.Equal(t, "/html/body/div[2]", closeBtn.XPath)

	assert.Equal(t, "q", nodes[3].ResourceID)
	assert.Equal(t, "Go", nodes[4].Text)
	assert.Equal(t, "/html/body/p", nodes[4].XPath)
}

func TestWebParser_NoInteractiveElements(t *testing.T) {
	nodes, err := WebParser{}.Parse(`<html><body><div><p>hello</p></div></body></html>`)
	require.NoError(t, err)
	assert.Empty(t, nodes)
}

func TestFor(t *testing.T) {
	p, err := For(entity.PlatformAndroid)
	require.NoError(t, err)
	assert.IsType(t, AndroidParser{}, p)

	p, err = For(entity.PlatformWeb)
	require.NoError(t, err)
	assert.IsType(t, WebParser{}, p)

	_, err = For(entity.Platform("ios"))
	assert.ErrorIs(t, err, entity.ErrUnsupportedPlatform)

	_, err = Parse("ios", "<x/>")
	assert.ErrorIs(t, err, entity.ErrUnsupportedPlatform)
}
