package viewer

import (
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/scrollmorph/internal/morph"
	"github.com/Faultbox/scrollmorph/internal/particle"
	"github.com/Faultbox/scrollmorph/internal/section"
)

// SetScroll sets the scroll fraction in [0,1]. In morph mode a change of
// section pair rewrites the morph buffer and re-uploads it; progress alone
// only changes a uniform. Values before the buffer exists are kept and
// applied when it is built.
func (v *Viewer) SetScroll(s float64) {
	if v.closed {
		return
	}
	v.scroll = s
	if v.ctrl == nil {
		return
	}
	if v.morphBuf == nil {
		v.state = morph.Resolve(s, v.ctrl.Sections())
		return
	}

	st, changed := v.ctrl.Update(s)
	v.state = st
	if !changed {
		return
	}
	pair := particle.Pair{Current: st.Current, Next: st.Next}
	if _, err := v.morphBuf.SetPair(pair); err != nil {
		v.log.Error("apply morph pair", zap.Int("current", st.Current), zap.Int("next", st.Next), zap.Error(err))
		return
	}
	if v.morphBuf.Dirty() {
		v.opts.Backend.UpdateMorph(v.morphBuf)
		v.morphBuf.ClearDirty()
	}
	v.log.Debug("morph pair changed", zap.Int("current", st.Current), zap.Int("next", st.Next))
}

// Resize requests a new drawable size. Bursts are collapsed: the last size
// is applied once no further resize arrived for the debounce interval.
// Zero sizes are ignored. The first valid size is applied immediately when
// the camera has never been set up.
func (v *Viewer) Resize(width, height int) {
	if v.closed {
		return
	}
	if width <= 0 || height <= 0 {
		v.log.Debug("ignoring zero-size resize", zap.Int("width", width), zap.Int("height", height))
		return
	}
	if !v.cam.Ready() {
		v.applySize(size{width, height})
		return
	}
	v.pending = &size{width, height}
	v.resizeDue = v.now().Add(v.opts.ResizeDebounce)
}

func (v *Viewer) applySize(s size) {
	if !v.cam.SetViewport(s.w, s.h) {
		return
	}
	v.opts.Backend.Resize(s.w, s.h)
	v.log.Debug("viewport resized", zap.Int("width", s.w), zap.Int("height", s.h))
}

// Frame advances the viewer by one frame and draws if there is anything to
// draw. It reports whether a draw call was issued.
func (v *Viewer) Frame() bool {
	if v.closed || !v.started {
		return false
	}
	now := v.now()

	v.drainResults()

	if v.pending != nil && !now.Before(v.resizeDue) {
		v.applySize(*v.pending)
		v.pending = nil
	}

	if v.minInterval > 0 && !v.lastFrame.IsZero() && now.Sub(v.lastFrame) < v.minInterval {
		return false
	}
	v.lastFrame = now

	if !v.uploaded || !v.cam.Ready() {
		return false
	}

	u := v.uniforms(float32(now.Sub(v.start).Seconds()))
	v.opts.Backend.Draw(u)
	v.frames++
	return true
}

// uniforms computes this frame's shader input. Static mode advances the
// rotation by the section's per-frame speed; morph mode blends scale,
// rotation and look between the pair.
func (v *Viewer) uniforms(t float32) Uniforms {
	u := Uniforms{
		View:       v.cam.View(),
		Projection: v.cam.Projection(),
		Time:       t,
	}

	var look section.Look
	var scale float32
	var rot mgl32.Vec3

	switch v.opts.Mode {
	case ModeStatic:
		d := &v.sections[v.members[0]]
		v.rotation = v.rotation.Add(mgl32.Vec3{d.RotationSpeed.X, d.RotationSpeed.Y, d.RotationSpeed.Z})
		rot = v.rotation
		scale = d.Scale
		look = v.looks[v.members[0]]

	case ModeMorph:
		st := v.state
		p := float32(st.Progress)
		a, b := &v.sections[st.Current], &v.sections[st.Next]
		scale = a.Scale + (b.Scale-a.Scale)*p
		rot = lerpVec(a.InitialRotation, b.InitialRotation, p)
		look = v.looks[st.Current].Lerp(v.looks[st.Next], p)
		u.MorphProgress = p
	}

	u.Model = modelMatrix(rot, scale)
	u.ParticleSize = look.ParticleSize
	u.AnimationIntensity = look.AnimationIntensity
	u.AnimationSpeed = look.AnimationSpeed
	u.GlowIntensity = look.GlowIntensity
	u.Animated = look.Animated
	return u
}

// modelMatrix is Rx*Ry*Rz*S, an XYZ Euler rotation applied after scaling.
func modelMatrix(rot mgl32.Vec3, scale float32) mgl32.Mat4 {
	r := mgl32.HomogRotate3DX(rot.X()).
		Mul4(mgl32.HomogRotate3DY(rot.Y())).
		Mul4(mgl32.HomogRotate3DZ(rot.Z()))
	return r.Mul4(mgl32.Scale3D(scale, scale, scale))
}

func lerpVec(a, b section.Vec3, t float32) mgl32.Vec3 {
	return mgl32.Vec3{
		a.X + (b.X-a.X)*t,
		a.Y + (b.Y-a.Y)*t,
		a.Z + (b.Z-a.Z)*t,
	}
}
