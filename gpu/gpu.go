// Package gpu uploads compiled shader binaries to a HAL device and tracks
// the native resources created from them so they can be released in the
// right order.
//
// The package is the resource-lifecycle half of the shader cache: the root
// package produces [shadercache.CompiledEntryPoint] values, this package
// turns them into hal.ShaderModule handles and frees them again. It never
// records GPU commands.
package gpu

import (
	"fmt"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/shadercache"
)

// ModuleDevice is the slice of hal.Device this package needs: shader module
// upload plus the destroy calls for everything a pipeline build creates.
// hal.Device satisfies it; tests use a stub.
type ModuleDevice interface {
	CreateShaderModule(desc *hal.ShaderModuleDescriptor) (hal.ShaderModule, error)
	DestroyShaderModule(module hal.ShaderModule)
	CreatePipelineLayout(desc *hal.PipelineLayoutDescriptor) (hal.PipelineLayout, error)
	DestroyPipelineLayout(layout hal.PipelineLayout)
	DestroyBindGroupLayout(layout hal.BindGroupLayout)
	DestroyRenderPipeline(pipeline hal.RenderPipeline)
	DestroyComputePipeline(pipeline hal.ComputePipeline)
}

var _ ModuleDevice = hal.Device(nil)

// CreateStageModule uploads one stage's SPIR-V words as a shader module.
func CreateStageModule(dev ModuleDevice, label string, code []uint32) (hal.ShaderModule, error) {
	mod, err := dev.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label: label,
		Source: hal.ShaderSource{
			SPIRV: code,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create shader module %q: %w", label, err)
	}
	return mod, nil
}

// CreateModules uploads every compiled entry point as its own shader module,
// labeled by entry point name. On any failure the modules created so far are
// destroyed before the error is returned.
func CreateModules(dev ModuleDevice, eps []shadercache.CompiledEntryPoint) ([]hal.ShaderModule, error) {
	mods := make([]hal.ShaderModule, 0, len(eps))
	for _, ep := range eps {
		mod, err := CreateStageModule(dev, ep.Name, ep.Code)
		if err != nil {
			for _, m := range mods {
				dev.DestroyShaderModule(m)
			}
			return nil, err
		}
		mods = append(mods, mod)
	}
	return mods, nil
}

// Resources tracks the native objects built from one shader program so a
// single Destroy releases them all. Fields may be left zero when a stage of
// the build did not happen.
type Resources struct {
	Device           ModuleDevice
	ShaderModules    []hal.ShaderModule
	BindLayouts      []hal.BindGroupLayout
	PipelineLayout   hal.PipelineLayout
	RenderPipelines  []hal.RenderPipeline
	ComputePipelines []hal.ComputePipeline
}

// CreatePipelineLayout creates the pipeline layout over the tracked bind
// group layouts and records it.
func (r *Resources) CreatePipelineLayout(label string) error {
	layout, err := r.Device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            label,
		BindGroupLayouts: r.BindLayouts,
	})
	if err != nil {
		return fmt.Errorf("gpu: create pipeline layout %q: %w", label, err)
	}
	r.PipelineLayout = layout
	return nil
}

// Destroy releases everything in dependency order: pipelines first, then
// the pipeline layout, bind group layouts, and finally the shader modules.
// Safe to call more than once.
func (r *Resources) Destroy() {
	if r.Device == nil {
		return
	}
	for _, p := range r.ComputePipelines {
		r.Device.DestroyComputePipeline(p)
	}
	r.ComputePipelines = nil
	for _, p := range r.RenderPipelines {
		r.Device.DestroyRenderPipeline(p)
	}
	r.RenderPipelines = nil
	if r.PipelineLayout != nil {
		r.Device.DestroyPipelineLayout(r.PipelineLayout)
		r.PipelineLayout = nil
	}
	for _, l := range r.BindLayouts {
		r.Device.DestroyBindGroupLayout(l)
	}
	r.BindLayouts = nil
	for _, m := range r.ShaderModules {
		r.Device.DestroyShaderModule(m)
	}
	r.ShaderModules = nil
}
