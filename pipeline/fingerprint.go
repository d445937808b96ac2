package pipeline

import (
	"encoding/binary"
	"hash"
	"math"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint reduces a pipeline configuration to a single deterministic
// hash suitable as a pipeline-object cache key.
//
// layoutFP is the fingerprint of the pipeline layout (descriptor set and
// push-constant shape), computed by the caller. The walk combines, in fixed
// order: layoutFP, every shader stage (stage id, entry point name, code
// hash), then one sub-hash per fixed-function block. Tessellation is folded
// in only while enabled. Within a block: scalar fields in declaration
// order, variable-length arrays in array order with an explicit count, then
// the extension chain in chain order.
//
// The function is pure. It depends only on field values, never on pointer
// identity, so equal configurations built through different call sequences
// always agree. Floats contribute their IEEE-754 bit patterns; -0 and +0
// therefore hash differently, as do distinct NaN payloads.
func Fingerprint(layoutFP uint64, s *State) uint64 {
	h := xxhash.New()
	hu64(h, layoutFP)

	for _, st := range s.Stages {
		hu32(h, uint32(st.Stage))
		hstr(h, st.EntryPoint)
		hu64(h, st.CodeHash)
	}

	hu64(h, vertexInputHash(&s.VertexInput))
	hu64(h, inputAssemblyHash(&s.InputAssembly))
	if s.Tessellation.Enabled {
		hu64(h, tessellationHash(&s.Tessellation))
	}
	hu64(h, viewportHash(&s.Viewport))
	hu64(h, rasterizationHash(&s.Rasterization))
	hu64(h, multisampleHash(&s.Multisample))
	hu64(h, depthStencilHash(&s.DepthStencil))
	hu64(h, colorBlendHash(&s.ColorBlend))
	hu64(h, dynamicStateHash(&s.Dynamic))

	return h.Sum64()
}

func vertexInputHash(v *VertexInputState) uint64 {
	h := xxhash.New()
	hu32(h, v.Flags)
	hu32(h, uint32(len(v.Bindings)))
	for _, b := range v.Bindings {
		hu32(h, b.Binding)
		hu32(h, b.Stride)
		hu32(h, uint32(b.InputRate))
	}
	hu32(h, uint32(len(v.Attributes)))
	for _, a := range v.Attributes {
		hu32(h, a.Location)
		hu32(h, a.Binding)
		hu32(h, a.Format)
		hu32(h, a.Offset)
	}
	hexts(h, v.Ext)
	return h.Sum64()
}

func inputAssemblyHash(v *InputAssemblyState) uint64 {
	h := xxhash.New()
	hu32(h, v.Flags)
	hu32(h, uint32(v.Topology))
	hbool(h, v.PrimitiveRestartEnable)
	hexts(h, v.Ext)
	return h.Sum64()
}

func tessellationHash(v *TessellationState) uint64 {
	h := xxhash.New()
	hu32(h, v.Flags)
	hu32(h, v.PatchControlPoints)
	hexts(h, v.Ext)
	return h.Sum64()
}

func viewportHash(v *ViewportState) uint64 {
	h := xxhash.New()
	hu32(h, v.Flags)
	hu32(h, v.ViewportCount)
	for _, vp := range v.Viewports {
		hf32(h, vp.X)
		hf32(h, vp.Y)
		hf32(h, vp.Width)
		hf32(h, vp.Height)
		hf32(h, vp.MinDepth)
		hf32(h, vp.MaxDepth)
	}
	hu32(h, v.ScissorCount)
	for _, sc := range v.Scissors {
		hrect(h, sc)
	}
	hexts(h, v.Ext)
	return h.Sum64()
}

func rasterizationHash(v *RasterizationState) uint64 {
	h := xxhash.New()
	hu32(h, v.Flags)
	hbool(h, v.DepthClampEnable)
	hbool(h, v.RasterizerDiscardEnable)
	hu32(h, uint32(v.PolygonMode))
	hu32(h, uint32(v.CullMode))
	hu32(h, uint32(v.FrontFace))
	hbool(h, v.DepthBiasEnable)
	hf32(h, v.DepthBiasConstantFactor)
	hf32(h, v.DepthBiasClamp)
	hf32(h, v.DepthBiasSlopeFactor)
	hf32(h, v.LineWidth)
	hexts(h, v.Ext)
	return h.Sum64()
}

func multisampleHash(v *MultisampleState) uint64 {
	h := xxhash.New()
	hu32(h, v.Flags)
	hu32(h, v.RasterizationSamples)
	hbool(h, v.SampleShadingEnable)
	hf32(h, v.MinSampleShading)
	hbool(h, v.AlphaToCoverageEnable)
	hbool(h, v.AlphaToOneEnable)
	hexts(h, v.Ext)
	return h.Sum64()
}

func depthStencilHash(v *DepthStencilState) uint64 {
	h := xxhash.New()
	hu32(h, v.Flags)
	hbool(h, v.DepthTestEnable)
	hbool(h, v.DepthWriteEnable)
	hu32(h, uint32(v.DepthCompareOp))
	hbool(h, v.DepthBoundsTestEnable)
	hbool(h, v.StencilTestEnable)
	hstencil(h, v.Front)
	hstencil(h, v.Back)
	hf32(h, v.MinDepthBounds)
	hf32(h, v.MaxDepthBounds)
	hexts(h, v.Ext)
	return h.Sum64()
}

func colorBlendHash(v *ColorBlendState) uint64 {
	h := xxhash.New()
	hu32(h, v.Flags)
	hbool(h, v.LogicOpEnable)
	hu32(h, uint32(v.LogicOp))
	hu32(h, uint32(len(v.Attachments)))
	for _, a := range v.Attachments {
		hbool(h, a.BlendEnable)
		hu32(h, uint32(a.SrcColorBlendFactor))
		hu32(h, uint32(a.DstColorBlendFactor))
		hu32(h, uint32(a.ColorBlendOp))
		hu32(h, uint32(a.SrcAlphaBlendFactor))
		hu32(h, uint32(a.DstAlphaBlendFactor))
		hu32(h, uint32(a.AlphaBlendOp))
		hu32(h, a.ColorWriteMask)
	}
	for _, c := range v.BlendConstants {
		hf32(h, c)
	}
	hexts(h, v.Ext)
	return h.Sum64()
}

func dynamicStateHash(v *DynamicState) uint64 {
	h := xxhash.New()
	hu32(h, v.Flags)
	hu32(h, uint32(len(v.States)))
	for _, d := range v.States {
		hu32(h, uint32(d))
	}
	hexts(h, v.Ext)
	return h.Sum64()
}

// hexts walks an extension chain in order. Each recognized record
// contributes a distinguishing tag byte and its field data; unrecognized
// records, RawExtension included, contribute nothing.
func hexts(h hash.Hash64, exts []Extension) {
	for _, e := range exts {
		switch x := e.(type) {
		case VertexInputDivisorExt:
			htag(h, 1)
			hu32(h, uint32(len(x.Divisors)))
			for _, d := range x.Divisors {
				hu32(h, d.Binding)
				hu32(h, d.Divisor)
			}
		case TessellationDomainOriginExt:
			htag(h, 2)
			hu32(h, x.DomainOrigin)
		case ViewportDepthClipControlExt:
			htag(h, 3)
			hbool(h, x.NegativeOneToOne)
		case ViewportDepthClampControlExt:
			htag(h, 4)
			hu32(h, x.DepthClampMode)
			if x.Range != nil {
				hf32(h, x.Range.MinDepthClamp)
				hf32(h, x.Range.MaxDepthClamp)
			}
		case ViewportExclusiveScissorExt:
			htag(h, 5)
			hu32(h, uint32(len(x.Scissors)))
			for _, sc := range x.Scissors {
				hrect(h, sc)
			}
		case ViewportShadingRateImageExt:
			htag(h, 6)
			hbool(h, x.Enable)
			hu32(h, uint32(len(x.Palettes)))
			for _, p := range x.Palettes {
				hu32(h, uint32(len(p.Entries)))
				for _, e := range p.Entries {
					hu32(h, e)
				}
			}
		case ViewportSwizzleExt:
			htag(h, 7)
			hu32(h, x.Flags)
			hu32(h, uint32(len(x.Swizzles)))
			for _, s := range x.Swizzles {
				hu32(h, s.X)
				hu32(h, s.Y)
				hu32(h, s.Z)
				hu32(h, s.W)
			}
		case ViewportWScalingExt:
			htag(h, 8)
			hbool(h, x.Enable)
			hu32(h, uint32(len(x.WScalings)))
			for _, w := range x.WScalings {
				hf32(h, w.XCoeff)
				hf32(h, w.YCoeff)
			}
		case ViewportCoarseSampleOrderExt:
			htag(h, 9)
			hu32(h, x.SampleOrderType)
			hu32(h, uint32(len(x.CustomOrders)))
			for _, o := range x.CustomOrders {
				hu32(h, o.ShadingRate)
				hu32(h, o.SampleCount)
				hu32(h, uint32(len(o.Locations)))
				for _, l := range o.Locations {
					hu32(h, l.PixelX)
					hu32(h, l.PixelY)
					hu32(h, l.Sample)
				}
			}
		case RasterizationConservativeExt:
			htag(h, 10)
			hu32(h, x.Mode)
			hf32(h, x.ExtraPrimitiveOverestimation)
		case RasterizationDepthClipExt:
			htag(h, 11)
			hu32(h, x.Flags)
			hbool(h, x.DepthClipEnable)
		case RasterizationLineExt:
			htag(h, 12)
			hu32(h, x.LineRasterizationMode)
			hbool(h, x.StippledLineEnable)
			hu32(h, x.LineStippleFactor)
			hu32(h, x.LineStipplePattern)
		case RasterizationProvokingVertexExt:
			htag(h, 13)
			hu32(h, x.ProvokingVertexMode)
		case RasterizationOrderExt:
			htag(h, 14)
			hu32(h, x.RasterizationOrder)
		case RasterizationStreamExt:
			htag(h, 15)
			hu32(h, x.Flags)
			hu32(h, x.RasterizationStream)
		case DepthBiasRepresentationExt:
			htag(h, 16)
			hu32(h, x.Representation)
		case MultisampleCoverageModulationExt:
			htag(h, 17)
			hu32(h, x.Flags)
			hu32(h, x.Mode)
			hbool(h, x.TableEnable)
			hu32(h, uint32(len(x.Table)))
			for _, t := range x.Table {
				hf32(h, t)
			}
		case MultisampleCoverageReductionExt:
			htag(h, 18)
			hu32(h, x.Flags)
			hu32(h, x.Mode)
		case MultisampleCoverageToColorExt:
			htag(h, 19)
			hu32(h, x.Flags)
			hbool(h, x.Enable)
			hu32(h, x.Location)
		case MultisampleSampleLocationsExt:
			htag(h, 20)
			hbool(h, x.Enable)
			if x.Enable {
				hu32(h, x.SamplesPerPixel)
				hu32(h, x.GridWidth)
				hu32(h, x.GridHeight)
				hu32(h, uint32(len(x.Locations)))
				for _, l := range x.Locations {
					hf32(h, l.X)
					hf32(h, l.Y)
				}
			}
		case ColorWriteExt:
			htag(h, 21)
			hu32(h, uint32(len(x.Enables)))
			for _, en := range x.Enables {
				hbool(h, en)
			}
		case ColorBlendAdvancedExt:
			htag(h, 22)
			hbool(h, x.SrcPremultiplied)
			hbool(h, x.DstPremultiplied)
			hu32(h, x.BlendOverlap)
		default:
			// Unknown record kind: skipped, no fingerprint effect.
		}
	}
}

func hrect(h hash.Hash64, r Rect) {
	hu32(h, uint32(r.OffsetX))
	hu32(h, uint32(r.OffsetY))
	hu32(h, r.Width)
	hu32(h, r.Height)
}

func hstencil(h hash.Hash64, s StencilOpState) {
	hu32(h, uint32(s.FailOp))
	hu32(h, uint32(s.PassOp))
	hu32(h, uint32(s.DepthFailOp))
	hu32(h, uint32(s.CompareOp))
	hu32(h, s.CompareMask)
	hu32(h, s.WriteMask)
	hu32(h, s.Reference)
}

func htag(h hash.Hash64, tag uint32) {
	hu32(h, tag)
}

func hu32(h hash.Hash64, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	_, _ = h.Write(b[:])
}

func hu64(h hash.Hash64, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	_, _ = h.Write(b[:])
}

func hf32(h hash.Hash64, v float32) {
	hu32(h, math.Float32bits(v))
}

func hbool(h hash.Hash64, v bool) {
	if v {
		_, _ = h.Write([]byte{1})
	} else {
		_, _ = h.Write([]byte{0})
	}
}

// hstr writes a length-prefixed string so adjacent strings never alias.
func hstr(h hash.Hash64, s string) {
	hu32(h, uint32(len(s)))
	_, _ = h.Write([]byte(s))
}
