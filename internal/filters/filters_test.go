package filters

import "testing"

func TestSetEqualizerBandValidation(t *testing.T) {
	f := New(nil)
	if err := f.SetEqualizerBand(20, 0.1); err == nil {
		t.Fatal("expected validation error for out-of-range band")
	}
	if err := f.SetEqualizerBand(0, 2.0); err == nil {
		t.Fatal("expected validation error for out-of-range gain")
	}
	if err := f.SetEqualizerBand(0, 0.5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestOnChangeInvokedOnMutation(t *testing.T) {
	calls := 0
	f := New(func() { calls++ })
	f.SetTimescale(Timescale{Speed: 1.2, Pitch: 1, Rate: 1})
	if calls != 1 {
		t.Fatalf("onChange called %d times, want 1", calls)
	}
	f.Clear()
	if calls != 2 {
		t.Fatalf("onChange called %d times after Clear, want 2", calls)
	}
}

func TestBassboostRange(t *testing.T) {
	f := New(nil)
	if err := f.Bassboost(-1); err == nil {
		t.Fatal("expected validation error")
	}
	if err := f.Bassboost(6); err == nil {
		t.Fatal("expected validation error")
	}
	if err := f.Bassboost(5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p := f.Payload()
	if len(p.Equalizer) != bandCount {
		t.Fatalf("expected %d bands populated, got %d", bandCount, len(p.Equalizer))
	}
	want := (5.0-1)*(1.25/9) - 0.25
	for _, b := range p.Equalizer {
		if b.Gain != want {
			t.Fatalf("band %d gain = %f, want %f", b.Band, b.Gain, want)
		}
	}
}

func TestNightcoreVaporwaveMutuallyExclusive(t *testing.T) {
	f := New(nil)
	f.Nightcore(1.5)
	p := f.Payload()
	if p.Timescale == nil || p.Timescale.Rate != 1.5 {
		t.Fatalf("expected nightcore rate 1.5, got %+v", p.Timescale)
	}
	f.Vaporwave(0.5)
	p = f.Payload()
	if p.Timescale == nil || p.Timescale.Pitch != 0.5 || p.Timescale.Rate != 1.0 {
		t.Fatalf("expected vaporwave to replace timescale block, got %+v", p.Timescale)
	}
}

func TestApplyPresetUnknownIsValidation(t *testing.T) {
	f := New(nil)
	if err := f.ApplyPreset("does-not-exist", nil); err == nil {
		t.Fatal("expected validation error for unknown preset")
	}
}

func TestApplyPresetClearsFirst(t *testing.T) {
	f := New(nil)
	f.SetEqualizerBand(0, 0.9)
	if err := f.ApplyPreset("lofi", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p := f.Payload()
	if len(p.Equalizer) != 0 {
		t.Fatalf("expected equalizer cleared by preset, got %+v", p.Equalizer)
	}
	if p.LowPass == nil {
		t.Fatal("expected lofi preset to set lowPass")
	}
}

func TestApplyBundle(t *testing.T) {
	f := New(nil)
	bb := 3.0
	b := Bundle{Bassboost: &bb}
	f.ApplyBundle(b)
	p := f.Payload()
	if len(p.Equalizer) != bandCount {
		t.Fatalf("expected bundle bassboost to populate equalizer, got %+v", p.Equalizer)
	}
}
