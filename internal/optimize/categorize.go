package optimize

import "strings"

// Group is a property family. Declarations are sorted by group, and within
// a group source order is kept so shorthands stay ahead of their longhands.
type Group int

const (
	GroupCustom Group = iota
	GroupLayout
	GroupTypography
	GroupVisual
	GroupEffects
)

// String returns the display name of the group.
func (g Group) String() string {
	switch g {
	case GroupCustom:
		return "custom"
	case GroupLayout:
		return "layout"
	case GroupTypography:
		return "typography"
	case GroupVisual:
		return "visual"
	case GroupEffects:
		return "effects"
	}
	return "unknown"
}

// propertyGroups maps property names and shorthand families to groups.
var propertyGroups = map[string]Group{
	// Layout
	"display":         GroupLayout,
	"position":        GroupLayout,
	"inset":           GroupLayout,
	"top":             GroupLayout,
	"right":           GroupLayout,
	"bottom":          GroupLayout,
	"left":            GroupLayout,
	"z-index":         GroupLayout,
	"float":           GroupLayout,
	"clear":           GroupLayout,
	"flex":            GroupLayout,
	"grid":            GroupLayout,
	"gap":             GroupLayout,
	"row-gap":         GroupLayout,
	"column-gap":      GroupLayout,
	"order":           GroupLayout,
	"justify":         GroupLayout,
	"align":           GroupLayout,
	"place":           GroupLayout,
	"width":           GroupLayout,
	"height":          GroupLayout,
	"inline-size":     GroupLayout,
	"block-size":      GroupLayout,
	"min":             GroupLayout,
	"max":             GroupLayout,
	"padding":         GroupLayout,
	"margin":          GroupLayout,
	"overflow":        GroupLayout,
	"aspect-ratio":    GroupLayout,
	"object-fit":      GroupLayout,
	"object-position": GroupLayout,
	"box-sizing":      GroupLayout,

	// Typography
	"font":            GroupTypography,
	"line-height":     GroupTypography,
	"letter-spacing":  GroupTypography,
	"word-spacing":    GroupTypography,
	"text-align":      GroupTypography,
	"text-decoration": GroupTypography,
	"text-transform":  GroupTypography,
	"text-overflow":   GroupTypography,
	"text-indent":     GroupTypography,
	"white-space":     GroupTypography,
	"word-break":      GroupTypography,
	"word-wrap":       GroupTypography,
	"overflow-wrap":   GroupTypography,
	"hyphens":         GroupTypography,

	// Visual
	"color":      GroupVisual,
	"background": GroupVisual,
	"border":     GroupVisual,
	"outline":    GroupVisual,
	"box-shadow": GroupVisual,
	"opacity":    GroupVisual,
	"fill":       GroupVisual,
	"stroke":     GroupVisual,
	"cursor":     GroupVisual,

	// Effects
	"transition":      GroupEffects,
	"transform":       GroupEffects,
	"animation":       GroupEffects,
	"filter":          GroupEffects,
	"backdrop-filter": GroupEffects,
	"mix-blend-mode":  GroupEffects,
	"clip-path":       GroupEffects,
	"mask":            GroupEffects,
	"will-change":     GroupEffects,
}

var vendorPrefixes = []string{"-webkit-", "-moz-", "-ms-", "-o-"}

// groupOf determines the group of a property. Longhands fall back to their
// shorthand family ("border-top-left-radius" to "border"), so a shorthand
// and its longhands always share a group. Unknown properties are layout.
func groupOf(prop string) Group {
	if strings.HasPrefix(prop, "--") {
		return GroupCustom
	}
	name := strings.ToLower(prop)
	for _, p := range vendorPrefixes {
		name = strings.TrimPrefix(name, p)
	}

	for {
		if g, ok := propertyGroups[name]; ok {
			return g
		}
		i := strings.LastIndexByte(name, '-')
		if i <= 0 {
			return GroupLayout
		}
		name = name[:i]
	}
}
