package filters

import "github.com/ryxu-xo/euralink/internal/errs"

// Preset is a named bundle of filter mutations applied atomically after
// clearing the current configuration.
type Preset func(*Filters)

var builtinPresets = map[string]Preset{
	"gaming": func(f *Filters) {
		f.SetTimescale(Timescale{Speed: 1.0, Pitch: 1.0, Rate: 1.0})
		f.SetEqualizerBand(0, 0.1)
		f.SetEqualizerBand(1, 0.05)
	},
	"lofi": func(f *Filters) {
		f.SetLowPass(LowPass{Smoothing: 20})
		f.SetTimescale(Timescale{Speed: 0.9, Pitch: 1.0, Rate: 1.0})
	},
	"party": func(f *Filters) {
		f.Bassboost(4)
		f.SetTremolo(Tremolo{Frequency: 4, Depth: 0.3})
	},
	"karaoke_soft": func(f *Filters) {
		f.SetKaraoke(Karaoke{Level: 0.5, MonoLevel: 1.0, FilterBand: 220, FilterWidth: 100})
	},
	"karaoke_hard": func(f *Filters) {
		f.SetKaraoke(Karaoke{Level: 1.0, MonoLevel: 1.0, FilterBand: 220, FilterWidth: 100})
	},
}

// ApplyPreset clears the current filters and applies the named preset. An
// unknown preset name is a Validation error and leaves state unchanged.
func (f *Filters) ApplyPreset(name string, registry map[string]Preset) error {
	presets := registry
	if presets == nil {
		presets = builtinPresets
	}
	preset, ok := presets[name]
	if !ok {
		return errs.New(errs.Validation, "Filters.ApplyPreset", "unknown preset: "+name)
	}
	f.Clear()
	preset(f)
	return nil
}

// BuiltinPresetNames lists the preset names shipped with the package,
// usable as a fallback registry or for validation messages.
func BuiltinPresetNames() []string {
	names := make([]string, 0, len(builtinPresets))
	for name := range builtinPresets {
		names = append(names, name)
	}
	return names
}

// Bundle is a serializable preset definition, the on-disk counterpart of a
// Preset func. It exists so custom presets can be hot-reloaded from a
// JSON file (see internal/filters/presets) without shipping Go code.
type Bundle struct {
	Bassboost  *float64    `json:"bassboost,omitempty"`
	Nightcore  *float64    `json:"nightcoreRate,omitempty"`
	Vaporwave  *float64    `json:"vaporwavePitch,omitempty"`
	EightD     *float64    `json:"eightDRotationHz,omitempty"`
	Timescale  *Timescale  `json:"timescale,omitempty"`
	Karaoke    *Karaoke    `json:"karaoke,omitempty"`
	Tremolo    *Tremolo    `json:"tremolo,omitempty"`
	Vibrato    *Vibrato    `json:"vibrato,omitempty"`
	Rotation   *Rotation   `json:"rotation,omitempty"`
	Distortion *Distortion `json:"distortion,omitempty"`
	ChannelMix *ChannelMix `json:"channelMix,omitempty"`
	LowPass    *LowPass    `json:"lowPass,omitempty"`
}

// ApplyBundle clears the current filters and applies a data-defined
// bundle, the JSON-loadable equivalent of a compiled-in Preset.
func (f *Filters) ApplyBundle(b Bundle) {
	f.Clear()
	if b.Bassboost != nil {
		f.Bassboost(*b.Bassboost)
	}
	if b.Nightcore != nil {
		f.Nightcore(*b.Nightcore)
	}
	if b.Vaporwave != nil {
		f.Vaporwave(*b.Vaporwave)
	}
	if b.EightD != nil {
		f.EightD(*b.EightD)
	}
	if b.Timescale != nil {
		f.SetTimescale(*b.Timescale)
	}
	if b.Karaoke != nil {
		f.SetKaraoke(*b.Karaoke)
	}
	if b.Tremolo != nil {
		f.SetTremolo(*b.Tremolo)
	}
	if b.Vibrato != nil {
		f.SetVibrato(*b.Vibrato)
	}
	if b.Rotation != nil {
		f.SetRotation(*b.Rotation)
	}
	if b.Distortion != nil {
		f.SetDistortion(*b.Distortion)
	}
	if b.ChannelMix != nil {
		f.SetChannelMix(*b.ChannelMix)
	}
	if b.LowPass != nil {
		f.SetLowPass(*b.LowPass)
	}
}
