package filters

import "github.com/ryxu-xo/euralink/internal/errs"

// Bassboost applies v in [0, 5] as an equalizer curve:
// gain = (v-1) * (1.25/9) - 0.25, applied to every band.
func (f *Filters) Bassboost(v float64) error {
	if v < 0 || v > 5 {
		return errs.New(errs.Validation, "Filters.Bassboost", "value out of range [0,5]")
	}
	gain := (v-1)*(1.25/9) - 0.25
	f.mu.Lock()
	for i := range f.equalizer {
		f.equalizer[i] = gain
	}
	f.mu.Unlock()
	f.notify()
	return nil
}

// Nightcore applies a timescale rate speedup. Mutually exclusive with
// Vaporwave — enabling one clears the other's timescale state first by
// simply overwriting the shared timescale block.
func (f *Filters) Nightcore(rate float64) {
	if rate <= 0 {
		rate = 1.5
	}
	f.SetTimescale(Timescale{Speed: 1.0, Pitch: 1.0, Rate: rate})
}

// Vaporwave applies a timescale pitch slowdown. Mutually exclusive with
// Nightcore for the same reason as above.
func (f *Filters) Vaporwave(pitch float64) {
	if pitch <= 0 {
		pitch = 0.5
	}
	f.SetTimescale(Timescale{Speed: 1.0, Pitch: pitch, Rate: 1.0})
}

// EightD applies a rotation filter at rotationHz (default 0.2).
func (f *Filters) EightD(rotationHz float64) {
	if rotationHz <= 0 {
		rotationHz = 0.2
	}
	f.SetRotation(Rotation{RotationHz: rotationHz})
}

// Slowmode applies a modest timescale slowdown, distinct from Vaporwave in
// that it changes speed rather than pitch.
func (f *Filters) Slowmode(speed float64) {
	if speed <= 0 {
		speed = 0.8
	}
	f.SetTimescale(Timescale{Speed: speed, Pitch: 1.0, Rate: 1.0})
}
