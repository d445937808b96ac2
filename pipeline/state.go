// Package pipeline models a fixed-function graphics pipeline configuration
// as plain values and reduces it to a deterministic fingerprint used as a
// pipeline-object cache key.
//
// The model mirrors the Vulkan pipeline create-info family: one struct per
// fixed-function block, each optionally carrying a chain of typed extension
// records (see [Extension]). Everything is a value; no field depends on
// memory layout or pointer identity, so two configurations built through
// different call sequences fingerprint identically whenever their resulting
// state is equal.
//
// The package also provides [Cache], a fingerprint-keyed LRU for native
// pipeline objects.
package pipeline

import "github.com/gogpu/shadercache/backend"

// PrimitiveTopology selects how vertices are assembled into primitives.
type PrimitiveTopology uint32

// Primitive topologies.
const (
	TopologyPointList PrimitiveTopology = iota
	TopologyLineList
	TopologyLineStrip
	TopologyTriangleList
	TopologyTriangleStrip
	TopologyTriangleFan
	TopologyPatchList
)

// PolygonMode selects how polygons are rasterized.
type PolygonMode uint32

// Polygon modes.
const (
	PolygonFill PolygonMode = iota
	PolygonLine
	PolygonPoint
)

// CullMode selects which polygon faces are discarded.
type CullMode uint32

// Cull modes.
const (
	CullNone CullMode = iota
	CullFront
	CullBack
	CullFrontAndBack
)

// FrontFace selects the winding order of front-facing polygons.
type FrontFace uint32

// Front-face winding orders.
const (
	FrontFaceCounterClockwise FrontFace = iota
	FrontFaceClockwise
)

// CompareOp is a depth or stencil comparison function.
type CompareOp uint32

// Comparison functions.
const (
	CompareNever CompareOp = iota
	CompareLess
	CompareEqual
	CompareLessOrEqual
	CompareGreater
	CompareNotEqual
	CompareGreaterOrEqual
	CompareAlways
)

// StencilOp is a stencil-buffer update operation.
type StencilOp uint32

// Stencil operations.
const (
	StencilKeep StencilOp = iota
	StencilZero
	StencilReplace
	StencilIncrementClamp
	StencilDecrementClamp
	StencilInvert
	StencilIncrementWrap
	StencilDecrementWrap
)

// BlendFactor is a color-blend multiplier.
type BlendFactor uint32

// Blend factors.
const (
	BlendZero BlendFactor = iota
	BlendOne
	BlendSrcColor
	BlendOneMinusSrcColor
	BlendDstColor
	BlendOneMinusDstColor
	BlendSrcAlpha
	BlendOneMinusSrcAlpha
	BlendDstAlpha
	BlendOneMinusDstAlpha
	BlendConstantColor
	BlendOneMinusConstantColor
	BlendConstantAlpha
	BlendOneMinusConstantAlpha
	BlendSrcAlphaSaturate
)

// BlendOp combines source and destination blend terms.
type BlendOp uint32

// Blend operations.
const (
	BlendOpAdd BlendOp = iota
	BlendOpSubtract
	BlendOpReverseSubtract
	BlendOpMin
	BlendOpMax
)

// LogicOp is a framebuffer logical operation.
type LogicOp uint32

// Logical operations.
const (
	LogicClear LogicOp = iota
	LogicAnd
	LogicAndReverse
	LogicCopy
	LogicAndInverted
	LogicNoOp
	LogicXor
	LogicOr
	LogicNor
	LogicEquivalent
	LogicInvert
	LogicOrReverse
	LogicCopyInverted
	LogicOrInverted
	LogicNand
	LogicSet
)

// VertexInputRate selects per-vertex or per-instance attribute stepping.
type VertexInputRate uint32

// Vertex input rates.
const (
	InputRateVertex VertexInputRate = iota
	InputRateInstance
)

// DynamicStateID names one piece of pipeline state left dynamic.
type DynamicStateID uint32

// Common dynamic state identifiers.
const (
	DynamicViewport DynamicStateID = iota
	DynamicScissor
	DynamicLineWidth
	DynamicDepthBias
	DynamicBlendConstants
	DynamicDepthBounds
	DynamicStencilCompareMask
	DynamicStencilWriteMask
	DynamicStencilReference
)

// StageRef binds a compiled shader stage to the pipeline. CodeHash is the
// hash of the stage's binary (shadercache cache key or a module content
// hash); the fingerprint folds it together with the stage and entry name so
// pipelines over different shader builds never collide.
type StageRef struct {
	Stage      backend.Stage
	EntryPoint string
	CodeHash   uint64
}

// VertexBinding describes one vertex buffer binding.
type VertexBinding struct {
	Binding   uint32
	Stride    uint32
	InputRate VertexInputRate
}

// VertexAttribute describes one vertex attribute.
type VertexAttribute struct {
	Location uint32
	Binding  uint32
	Format   uint32
	Offset   uint32
}

// VertexInputState is the vertex-input fixed-function block.
type VertexInputState struct {
	Flags      uint32
	Bindings   []VertexBinding
	Attributes []VertexAttribute
	Ext        []Extension
}

// InputAssemblyState is the input-assembly fixed-function block.
type InputAssemblyState struct {
	Flags                  uint32
	Topology               PrimitiveTopology
	PrimitiveRestartEnable bool
	Ext                    []Extension
}

// TessellationState is the tessellation fixed-function block. It contributes
// to the fingerprint only when Enabled is set.
type TessellationState struct {
	Flags              uint32
	PatchControlPoints uint32
	Enabled            bool
	Ext                []Extension
}

// Viewport is one viewport rectangle with its depth range.
type Viewport struct {
	X, Y          float32
	Width, Height float32
	MinDepth      float32
	MaxDepth      float32
}

// Rect is an integer scissor rectangle.
type Rect struct {
	OffsetX, OffsetY int32
	Width, Height    uint32
}

// ViewportState is the viewport fixed-function block. ViewportCount and
// ScissorCount may exceed the slice lengths when the actual rectangles are
// dynamic state.
type ViewportState struct {
	Flags         uint32
	ViewportCount uint32
	ScissorCount  uint32
	Viewports     []Viewport
	Scissors      []Rect
	Ext           []Extension
}

// RasterizationState is the rasterization fixed-function block.
type RasterizationState struct {
	Flags                   uint32
	DepthClampEnable        bool
	RasterizerDiscardEnable bool
	PolygonMode             PolygonMode
	CullMode                CullMode
	FrontFace               FrontFace
	DepthBiasEnable         bool
	DepthBiasConstantFactor float32
	DepthBiasClamp          float32
	DepthBiasSlopeFactor    float32
	LineWidth               float32
	Ext                     []Extension
}

// MultisampleState is the multisample fixed-function block.
type MultisampleState struct {
	Flags                 uint32
	RasterizationSamples  uint32
	SampleShadingEnable   bool
	MinSampleShading      float32
	AlphaToCoverageEnable bool
	AlphaToOneEnable      bool
	Ext                   []Extension
}

// StencilOpState configures one stencil face.
type StencilOpState struct {
	FailOp      StencilOp
	PassOp      StencilOp
	DepthFailOp StencilOp
	CompareOp   CompareOp
	CompareMask uint32
	WriteMask   uint32
	Reference   uint32
}

// DepthStencilState is the depth/stencil fixed-function block.
type DepthStencilState struct {
	Flags                 uint32
	DepthTestEnable       bool
	DepthWriteEnable      bool
	DepthCompareOp        CompareOp
	DepthBoundsTestEnable bool
	StencilTestEnable     bool
	Front                 StencilOpState
	Back                  StencilOpState
	MinDepthBounds        float32
	MaxDepthBounds        float32
	Ext                   []Extension
}

// BlendAttachment is one color attachment's blend descriptor.
type BlendAttachment struct {
	BlendEnable         bool
	SrcColorBlendFactor BlendFactor
	DstColorBlendFactor BlendFactor
	ColorBlendOp        BlendOp
	SrcAlphaBlendFactor BlendFactor
	DstAlphaBlendFactor BlendFactor
	AlphaBlendOp        BlendOp
	ColorWriteMask      uint32
}

// ColorBlendState is the color-blend fixed-function block.
type ColorBlendState struct {
	Flags          uint32
	LogicOpEnable  bool
	LogicOp        LogicOp
	Attachments    []BlendAttachment
	BlendConstants [4]float32
	Ext            []Extension
}

// DynamicState is the dynamic-state fixed-function block.
type DynamicState struct {
	Flags  uint32
	States []DynamicStateID
	Ext    []Extension
}

// State is the complete fixed-function pipeline configuration consumed by
// [Fingerprint]. Value-only; copying a State copies the configuration.
type State struct {
	Stages        []StageRef
	VertexInput   VertexInputState
	InputAssembly InputAssemblyState
	Tessellation  TessellationState
	Viewport      ViewportState
	Rasterization RasterizationState
	Multisample   MultisampleState
	DepthStencil  DepthStencilState
	ColorBlend    ColorBlendState
	Dynamic       DynamicState
}

// NewState returns a configuration with conventional defaults: triangle
// list topology, fill polygons with back-face culling and counter-clockwise
// front faces, one viewport and scissor, single-sampled, depth test and
// write enabled with a less-than compare, no blending.
func NewState() *State {
	return &State{
		InputAssembly: InputAssemblyState{
			Topology: TopologyTriangleList,
		},
		Tessellation: TessellationState{
			PatchControlPoints: 1,
		},
		Viewport: ViewportState{
			ViewportCount: 1,
			ScissorCount:  1,
		},
		Rasterization: RasterizationState{
			PolygonMode: PolygonFill,
			CullMode:    CullBack,
			FrontFace:   FrontFaceCounterClockwise,
			LineWidth:   1.0,
		},
		Multisample: MultisampleState{
			RasterizationSamples: 1,
		},
		DepthStencil: DepthStencilState{
			DepthTestEnable:  true,
			DepthWriteEnable: true,
			DepthCompareOp:   CompareLess,
		},
		ColorBlend: ColorBlendState{
			LogicOp: LogicCopy,
		},
	}
}
