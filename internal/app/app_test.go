package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/scrollmorph/internal/config"
	"github.com/Faultbox/scrollmorph/internal/morph"
	"github.com/Faultbox/scrollmorph/internal/section"
	"github.com/Faultbox/scrollmorph/internal/viewer"
)

func threeSections() []section.Descriptor {
	return []section.Descriptor{
		{ID: "a", Title: "Intro", ModelPath: "a.glb"},
		{ID: "b", Title: "", ModelPath: "b.glb"},
		{ID: "c", Title: "Outro", ModelPath: "c.glb"},
	}
}

func TestScrollRange(t *testing.T) {
	assert.Equal(t, 1440.0, scrollRange(3, 720))
	assert.Equal(t, 0.0, scrollRange(1, 720))
	assert.Equal(t, 0.0, scrollRange(3, 0))

	// One window height of scrolling moves exactly one section.
	var s morph.Scroll
	s.SetRange(scrollRange(3, 720))
	s.ScrollBy(720)
	assert.Equal(t, 1, morph.Resolve(s.Fraction(), 3).Current)
}

func TestTitles(t *testing.T) {
	assert.Equal(t, "ScrollMorph - loading 1/3", loadingTitle(1, 3))
	assert.Equal(t, "ScrollMorph", loadingTitle(3, 3))

	sections := threeSections()
	tests := []struct {
		state morph.State
		want  string
	}{
		{morph.State{Current: 0, Next: 1, Progress: 0.2}, "ScrollMorph - Intro"},
		{morph.State{Current: 0, Next: 1, Progress: 0.7}, "ScrollMorph"},
		{morph.State{Current: 1, Next: 2, Progress: 0.5}, "ScrollMorph - Outro"},
		{morph.State{Current: 7}, "ScrollMorph"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sectionTitle(sections, tt.state))
	}
	assert.Equal(t, Title, sectionTitle(nil, morph.State{}))
}

func TestViewerOptions(t *testing.T) {
	cfg := config.Default()
	cfg.Viewer.Profiles = []config.ProfileConfig{{AnimationIntensity: 0.1, AnimationSpeed: 0.2, GlowIntensity: 0.3}}

	opts, err := viewerOptions(cfg, threeSections())
	require.NoError(t, err)
	assert.Equal(t, viewer.ModeMorph, opts.Mode)
	assert.Equal(t, 60, opts.FPSLimit)
	assert.Equal(t, float32(45), opts.FOV)
	assert.Equal(t, []section.Profile{{AnimationIntensity: 0.1, AnimationSpeed: 0.2, GlowIntensity: 0.3}}, opts.Profiles)

	opts, err = viewerOptions(cfg, threeSections()[:1])
	require.NoError(t, err)
	assert.Equal(t, viewer.ModeStatic, opts.Mode)

	cfg.Viewer.Mode = "static"
	cfg.Viewer.StaticSection = 3
	_, err = viewerOptions(cfg, threeSections())
	assert.Error(t, err)

	cfg.Viewer.Mode = "bounce"
	cfg.Viewer.StaticSection = 0
	_, err = viewerOptions(cfg, threeSections())
	assert.Error(t, err)
}

func TestProfilesDefaultToNil(t *testing.T) {
	assert.Nil(t, profiles(nil))
}

func TestErrorSuffix(t *testing.T) {
	sections := threeSections()
	assert.Equal(t, "", errorSuffix(sections, nil))
	assert.Equal(t, " - error loading b.glb", errorSuffix(sections, []int{1}))
	assert.Equal(t, " - error loading a.glb (+2 more)", errorSuffix(sections, []int{0, 1, 2}))
	assert.Equal(t, " - error loading section 5", errorSuffix(sections, []int{5}))

	// A failed static section replaces the bare title once loading ends.
	assert.Equal(t, "ScrollMorph - error loading c.glb", Title+errorSuffix(sections, []int{2}))
	assert.Equal(t, "ScrollMorph - Intro - error loading b.glb",
		sectionTitle(sections, morph.State{Current: 0, Next: 1, Progress: 0.1})+errorSuffix(sections, []int{1}))
}

func TestNextStep(t *testing.T) {
	tests := []struct {
		name   string
		drew   bool
		status viewer.Status
		want   step
	}{
		{"drawn frame is presented", true, viewer.StatusReady, step{swap: true}},
		{"throttled frame yields", false, viewer.StatusReady, step{yield: true}},
		{"loading clears and yields", false, viewer.StatusLoading, step{clear: true, swap: true, yield: true}},
		{"error clears and yields", false, viewer.StatusError, step{clear: true, swap: true, yield: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, nextStep(tt.drew, tt.status))
		})
	}
}
