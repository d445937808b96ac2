package pipeline

// Extension is one typed record in a fixed-function block's extension chain.
//
// The set of recognized payload kinds is closed: every concrete type in this
// file implements the interface, and the fingerprint walk matches on the
// concrete type. Records of a kind the walk does not recognize — including
// every [RawExtension] — are skipped silently, so adding a new extension
// kind has no effect on fingerprints until the walk learns its fields.
//
// The interface is sealed; types outside this package cannot implement it.
type Extension interface {
	isExtension()
}

// VertexBindingDivisor configures instanced attribute stepping for one
// binding.
type VertexBindingDivisor struct {
	Binding uint32
	Divisor uint32
}

// VertexInputDivisorExt carries per-binding instance divisors.
type VertexInputDivisorExt struct {
	Divisors []VertexBindingDivisor
}

// TessellationDomainOriginExt selects the tessellation domain origin.
type TessellationDomainOriginExt struct {
	DomainOrigin uint32
}

// ViewportDepthClipControlExt enables the negative-one-to-one depth range.
type ViewportDepthClipControlExt struct {
	NegativeOneToOne bool
}

// DepthClampRange is an explicit user depth clamp range.
type DepthClampRange struct {
	MinDepthClamp float32
	MaxDepthClamp float32
}

// ViewportDepthClampControlExt selects the depth clamp mode, optionally with
// an explicit clamp range.
type ViewportDepthClampControlExt struct {
	DepthClampMode uint32
	Range          *DepthClampRange
}

// ViewportExclusiveScissorExt carries exclusive scissor rectangles.
type ViewportExclusiveScissorExt struct {
	Scissors []Rect
}

// ShadingRatePalette is one viewport's shading-rate palette.
type ShadingRatePalette struct {
	Entries []uint32
}

// ViewportShadingRateImageExt configures shading-rate image sampling.
type ViewportShadingRateImageExt struct {
	Enable   bool
	Palettes []ShadingRatePalette
}

// ViewportSwizzle is one viewport's coordinate swizzle.
type ViewportSwizzle struct {
	X, Y, Z, W uint32
}

// ViewportSwizzleExt carries per-viewport coordinate swizzles.
type ViewportSwizzleExt struct {
	Flags    uint32
	Swizzles []ViewportSwizzle
}

// ViewportWScaling is one viewport's W scaling coefficients.
type ViewportWScaling struct {
	XCoeff float32
	YCoeff float32
}

// ViewportWScalingExt configures viewport W scaling.
type ViewportWScalingExt struct {
	Enable    bool
	WScalings []ViewportWScaling
}

// CoarseSampleLocation is one location in a custom coarse sample order.
type CoarseSampleLocation struct {
	PixelX uint32
	PixelY uint32
	Sample uint32
}

// CoarseSampleOrder is one custom sample order entry.
type CoarseSampleOrder struct {
	ShadingRate uint32
	SampleCount uint32
	Locations   []CoarseSampleLocation
}

// ViewportCoarseSampleOrderExt configures the coarse sample ordering.
type ViewportCoarseSampleOrderExt struct {
	SampleOrderType uint32
	CustomOrders    []CoarseSampleOrder
}

// RasterizationConservativeExt configures conservative rasterization.
type RasterizationConservativeExt struct {
	Mode                         uint32
	ExtraPrimitiveOverestimation float32
}

// RasterizationDepthClipExt controls depth clipping independently of depth
// clamping.
type RasterizationDepthClipExt struct {
	Flags           uint32
	DepthClipEnable bool
}

// RasterizationLineExt configures line rasterization and stippling.
type RasterizationLineExt struct {
	LineRasterizationMode uint32
	StippledLineEnable    bool
	LineStippleFactor     uint32
	LineStipplePattern    uint32
}

// RasterizationProvokingVertexExt selects the provoking vertex convention.
type RasterizationProvokingVertexExt struct {
	ProvokingVertexMode uint32
}

// RasterizationOrderExt relaxes primitive rasterization ordering.
type RasterizationOrderExt struct {
	RasterizationOrder uint32
}

// RasterizationStreamExt selects the transform feedback stream.
type RasterizationStreamExt struct {
	Flags               uint32
	RasterizationStream uint32
}

// DepthBiasRepresentationExt selects the depth bias representation.
type DepthBiasRepresentationExt struct {
	Representation uint32
}

// MultisampleCoverageModulationExt configures coverage modulation.
type MultisampleCoverageModulationExt struct {
	Flags       uint32
	Mode        uint32
	TableEnable bool
	Table       []float32
}

// MultisampleCoverageReductionExt selects the coverage reduction mode.
type MultisampleCoverageReductionExt struct {
	Flags uint32
	Mode  uint32
}

// MultisampleCoverageToColorExt writes coverage into a color attachment.
type MultisampleCoverageToColorExt struct {
	Flags    uint32
	Enable   bool
	Location uint32
}

// SampleLocation is one programmable sample position.
type SampleLocation struct {
	X, Y float32
}

// MultisampleSampleLocationsExt configures programmable sample locations.
// The location data contributes to the fingerprint only while Enable is set.
type MultisampleSampleLocationsExt struct {
	Enable          bool
	SamplesPerPixel uint32
	GridWidth       uint32
	GridHeight      uint32
	Locations       []SampleLocation
}

// ColorWriteExt carries per-attachment color write enables.
type ColorWriteExt struct {
	Enables []bool
}

// ColorBlendAdvancedExt configures advanced blend operations.
type ColorBlendAdvancedExt struct {
	SrcPremultiplied bool
	DstPremultiplied bool
	BlendOverlap     uint32
}

// RawExtension is an extension record of a kind this package does not model:
// an opaque tag plus payload bytes. The fingerprint walk skips it entirely;
// two configurations differing only in RawExtension content hash identically.
type RawExtension struct {
	Tag  uint32
	Data []byte
}

func (VertexInputDivisorExt) isExtension()            {}
func (TessellationDomainOriginExt) isExtension()      {}
func (ViewportDepthClipControlExt) isExtension()      {}
func (ViewportDepthClampControlExt) isExtension()     {}
func (ViewportExclusiveScissorExt) isExtension()      {}
func (ViewportShadingRateImageExt) isExtension()      {}
func (ViewportSwizzleExt) isExtension()               {}
func (ViewportWScalingExt) isExtension()              {}
func (ViewportCoarseSampleOrderExt) isExtension()     {}
func (RasterizationConservativeExt) isExtension()     {}
func (RasterizationDepthClipExt) isExtension()        {}
func (RasterizationLineExt) isExtension()             {}
func (RasterizationProvokingVertexExt) isExtension()  {}
func (RasterizationOrderExt) isExtension()            {}
func (RasterizationStreamExt) isExtension()           {}
func (DepthBiasRepresentationExt) isExtension()       {}
func (MultisampleCoverageModulationExt) isExtension() {}
func (MultisampleCoverageReductionExt) isExtension()  {}
func (MultisampleCoverageToColorExt) isExtension()    {}
func (MultisampleSampleLocationsExt) isExtension()    {}
func (ColorWriteExt) isExtension()                    {}
func (ColorBlendAdvancedExt) isExtension()            {}
func (RawExtension) isExtension()                     {}
