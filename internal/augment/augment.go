// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package augment

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// =============================================================================
// KIND
// =============================================================================

// Kind is the value of the "augmentation" tag on the wire.
type Kind string

const (
	KindResponseButton Kind = "response-button"
	KindAnimation      Kind = "animation"
	KindChart          Kind = "chart"
	KindNone           Kind = "none"
)

// Kinds lists every known tag in validation order.
var Kinds = []Kind{KindResponseButton, KindAnimation, KindChart, KindNone}

// String returns the wire tag.
func (k Kind) String() string {
	return string(k)
}

// =============================================================================
// AUGMENTATION
// =============================================================================

// Augmentation is a structured UI directive attached to an assistant message.
// The set of implementations is closed: ResponseButton, Animation, Chart, None.
type Augmentation interface {
	Kind() Kind
	isAugmentation()
}

// ResponseButton renders a suggestion that submits ResponseText when clicked.
type ResponseButton struct {
	ButtonText   string `json:"buttonText"`
	ResponseText string `json:"responseText"`
}

func (ResponseButton) Kind() Kind      { return KindResponseButton }
func (ResponseButton) isAugmentation() {}

// Effect is the celebratory effect requested by an animation augmentation.
type Effect string

const (
	EffectYes        Effect = "Yes"
	EffectNo         Effect = "No"
	EffectExcitement Effect = "Excitement"
	EffectSuccess    Effect = "Success"
)

// Effects lists the accepted animation values.
var Effects = []Effect{EffectYes, EffectNo, EffectExcitement, EffectSuccess}

// Valid reports whether e is one of the accepted values.
func (e Effect) Valid() bool {
	for _, v := range Effects {
		if e == v {
			return true
		}
	}
	return false
}

// Animation triggers a short visual effect alongside the message.
type Animation struct {
	Effect Effect
}

func (Animation) Kind() Kind      { return KindAnimation }
func (Animation) isAugmentation() {}

// ChartType names a chart kind understood by the chart renderer.
type ChartType string

const (
	ChartPie       ChartType = "Pie"
	ChartLine      ChartType = "Line"
	ChartBar       ChartType = "Bar"
	ChartDoughnut  ChartType = "Doughnut"
	ChartPolarArea ChartType = "PolarArea"
	ChartRadar     ChartType = "Radar"
	ChartScatter   ChartType = "Scatter"
	ChartBubble    ChartType = "Bubble"
)

// ChartTypes lists the accepted chart types.
var ChartTypes = []ChartType{
	ChartPie, ChartLine, ChartBar, ChartDoughnut,
	ChartPolarArea, ChartRadar, ChartScatter, ChartBubble,
}

// Valid reports whether t is one of the accepted chart types.
func (t ChartType) Valid() bool {
	for _, v := range ChartTypes {
		if t == v {
			return true
		}
	}
	return false
}

// Dataset is one series of a chart. Data is kept opaque because scatter and
// bubble charts carry points instead of plain numbers.
type Dataset struct {
	Label string          `json:"label"`
	Data  json.RawMessage `json:"data"`
	Fill  json.RawMessage `json:"fill,omitempty"`
}

// Values decodes Data as a list of numbers. Non-numeric entries are skipped.
func (d Dataset) Values() []float64 {
	var raw []json.RawMessage
	if err := json.Unmarshal(d.Data, &raw); err != nil {
		return nil
	}
	out := make([]float64, 0, len(raw))
	for _, r := range raw {
		var f float64
		if err := json.Unmarshal(r, &f); err == nil {
			out = append(out, f)
		}
	}
	return out
}

// Point is an x/y (and optional radius) sample used by scatter and bubble charts.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	R float64 `json:"r,omitempty"`
}

// Points decodes Data as a list of points. Entries that are not objects are skipped.
func (d Dataset) Points() []Point {
	var raw []json.RawMessage
	if err := json.Unmarshal(d.Data, &raw); err != nil {
		return nil
	}
	out := make([]Point, 0, len(raw))
	for _, r := range raw {
		var p Point
		if err := json.Unmarshal(r, &p); err == nil && len(r) > 0 && r[0] == '{' {
			out = append(out, p)
		}
	}
	return out
}

// ChartData holds labels and datasets.
type ChartData struct {
	Labels   []string  `json:"labels"`
	Datasets []Dataset `json:"datasets"`
}

// Chart is rendered through a chart-rendering capability.
type Chart struct {
	Type    ChartType       `json:"type" jsonschema:"enum=Pie,enum=Line,enum=Bar,enum=Doughnut,enum=PolarArea,enum=Radar,enum=Scatter,enum=Bubble"`
	Data    ChartData       `json:"data"`
	Options json.RawMessage `json:"options,omitempty"`
}

func (Chart) Kind() Kind      { return KindChart }
func (Chart) isAugmentation() {}

// None is an explicit "no augmentation".
type None struct{}

func (None) Kind() Kind      { return KindNone }
func (None) isAugmentation() {}

// IsAbsent reports whether a carries nothing to render.
func IsAbsent(a Augmentation) bool {
	if a == nil {
		return true
	}
	_, ok := a.(None)
	return ok
}

// =============================================================================
// ENCODING
// =============================================================================

// envelope is the wire shape: {"augmentation": <tag>, "data": <payload>}.
type envelope struct {
	Augmentation Kind `json:"augmentation"`
	Data         any  `json:"data,omitempty"`
}

// Marshal encodes a as a tagged envelope.
func Marshal(a Augmentation) ([]byte, error) {
	if a == nil {
		return nil, errors.New("augment: nil augmentation")
	}
	env := envelope{Augmentation: a.Kind()}
	switch v := a.(type) {
	case ResponseButton:
		env.Data = v
	case Animation:
		env.Data = v.Effect
	case Chart:
		env.Data = v
	case None:
	default:
		return nil, errors.Errorf("augment: unknown augmentation %T", a)
	}
	b, err := json.Marshal(env)
	if err != nil {
		return nil, errors.Wrap(err, "augment: marshal")
	}
	return b, nil
}
