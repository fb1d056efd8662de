package models

// PenStyle holds the rendering attributes of one pen.
type PenStyle struct {
	Type      string  `json:"type"`
	Color     string  `json:"color"`
	Thickness float64 `json:"thickness"`
	Opacity   float64 `json:"opacity"`
}

// PenMapping maps a numeric pen id to its rendering attributes. The table is
// vendor-extensible: ids not present in the table fall back to the default
// entry instead of failing the decode.
type PenMapping struct {
	Styles  map[uint32]PenStyle
	Default PenStyle
}

// Lookup returns the style for id, or the default style for unknown ids.
func (m *PenMapping) Lookup(id uint32) PenStyle {
	if s, ok := m.Styles[id]; ok {
		return s
	}
	return m.Default
}

// DefaultPenMapping returns the pen table shipped by the AiPaper firmware.
// New device firmware may introduce further ids; those render with Default.
func DefaultPenMapping() *PenMapping {
	return &PenMapping{
		Styles: map[uint32]PenStyle{
			1: {Type: "ballpoint", Color: "#000000", Thickness: 2.0, Opacity: 1.0},
			2: {Type: "pencil", Color: "#333333", Thickness: 1.5, Opacity: 0.85},
			3: {Type: "marker", Color: "#000000", Thickness: 6.0, Opacity: 0.6},
			4: {Type: "fineliner", Color: "#1a1a1a", Thickness: 1.0, Opacity: 1.0},
			5: {Type: "highlighter", Color: "#ffd400", Thickness: 12.0, Opacity: 0.35},
		},
		Default: PenStyle{Type: "ballpoint", Color: "#000000", Thickness: 2.0, Opacity: 1.0},
	}
}
