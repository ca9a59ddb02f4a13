package guardrail

import "testing"

func TestEvaluateHighResolutionAllowsProceed(t *testing.T) {
	state := Evaluate(Input{
		ImageWidth:              3000,
		ImageHeight:             4500,
		TargetPrintWidthInches:  10,
		TargetPrintHeightInches: 15,
	})

	if state.DpiStatus != DpiStatusGood {
		t.Fatalf("expected good status, got %s", state.DpiStatus)
	}
	if !state.AllowProceed {
		t.Fatalf("expected proceed to be allowed")
	}
	if state.EffectiveDpi == nil || *state.EffectiveDpi != 300 {
		t.Fatalf("unexpected effective dpi: %v", state.EffectiveDpi)
	}
	if state.ResolutionMessage.Tone != TonePositive {
		t.Fatalf("expected positive resolution tone, got %s", state.ResolutionMessage.Tone)
	}
}

func TestEvaluateDpiThresholds(t *testing.T) {
	tests := []struct {
		name           string
		imageWidth     int
		imageHeight    int
		expectedStatus DpiStatus
		expectProceed  bool
	}{
		{name: "well above good", imageWidth: 6000, imageHeight: 6000, expectedStatus: DpiStatusGood, expectProceed: true},
		{name: "exactly good", imageWidth: 3000, imageHeight: 3000, expectedStatus: DpiStatusGood, expectProceed: true},
		{name: "upper warn band", imageWidth: 2999, imageHeight: 2999, expectedStatus: DpiStatusWarn, expectProceed: true},
		{name: "lower warn band", imageWidth: 1800, imageHeight: 1800, expectedStatus: DpiStatusWarn, expectProceed: true},
		{name: "just below warn", imageWidth: 1799, imageHeight: 1799, expectedStatus: DpiStatusBlock, expectProceed: false},
		{name: "far below block", imageWidth: 400, imageHeight: 400, expectedStatus: DpiStatusBlock, expectProceed: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			state := Evaluate(Input{
				ImageWidth:              tc.imageWidth,
				ImageHeight:             tc.imageHeight,
				TargetPrintWidthInches:  10,
				TargetPrintHeightInches: 10,
			})
			if state.DpiStatus != tc.expectedStatus {
				t.Fatalf("expected status %s, got %s", tc.expectedStatus, state.DpiStatus)
			}
			if state.AllowProceed != tc.expectProceed {
				t.Fatalf("expected allowProceed=%v, got %v", tc.expectProceed, state.AllowProceed)
			}
		})
	}
}

func TestEvaluateUsesSmallerAxisDpi(t *testing.T) {
	state := Evaluate(Input{
		ImageWidth:              6000,
		ImageHeight:             1000,
		TargetPrintWidthInches:  10,
		TargetPrintHeightInches: 10,
	})

	if state.EffectiveDpi == nil || *state.EffectiveDpi != 100 {
		t.Fatalf("expected min-axis dpi of 100, got %v", state.EffectiveDpi)
	}
	if state.DpiStatus != DpiStatusBlock {
		t.Fatalf("expected block status, got %s", state.DpiStatus)
	}
}

func TestEvaluateLowDpiBlocksRegardlessOfCollision(t *testing.T) {
	for _, collides := range []bool{false, true} {
		state := Evaluate(Input{
			ImageWidth:              500,
			ImageHeight:             500,
			TargetPrintWidthInches:  10,
			TargetPrintHeightInches: 10,
			SafeAreaCollisions:      collides,
		})
		if state.AllowProceed {
			t.Fatalf("expected proceed blocked at low dpi (collisions=%v)", collides)
		}
		if state.DpiStatus != DpiStatusBlock {
			t.Fatalf("expected block status, got %s", state.DpiStatus)
		}
	}
}

func TestEvaluateCollisionBlocksRegardlessOfDpi(t *testing.T) {
	state := Evaluate(Input{
		ImageWidth:              6000,
		ImageHeight:             6000,
		TargetPrintWidthInches:  10,
		TargetPrintHeightInches: 10,
		SafeAreaCollisions:      true,
	})

	if state.DpiStatus != DpiStatusGood {
		t.Fatalf("expected good dpi status, got %s", state.DpiStatus)
	}
	if state.AllowProceed {
		t.Fatalf("expected collision to block proceed")
	}
	if state.SafeAreaMessage.Tone != ToneCritical {
		t.Fatalf("expected critical safe-area tone, got %s", state.SafeAreaMessage.Tone)
	}
	if state.ResolutionMessage.Tone != TonePositive {
		t.Fatalf("expected resolution message to stay independent of collision")
	}
}

func TestEvaluateMalformedGeometryDegradesToWarn(t *testing.T) {
	tests := []struct {
		name  string
		input Input
	}{
		{name: "zero image width", input: Input{ImageHeight: 1000, TargetPrintWidthInches: 10, TargetPrintHeightInches: 10}},
		{name: "negative image height", input: Input{ImageWidth: 1000, ImageHeight: -5, TargetPrintWidthInches: 10, TargetPrintHeightInches: 10}},
		{name: "zero print width", input: Input{ImageWidth: 1000, ImageHeight: 1000, TargetPrintHeightInches: 10}},
		{name: "all zero", input: Input{}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			state := Evaluate(tc.input)
			if state.EffectiveDpi != nil {
				t.Fatalf("expected nil dpi, got %v", *state.EffectiveDpi)
			}
			if state.DpiStatus != DpiStatusWarn {
				t.Fatalf("unknown geometry must warn, never block; got %s", state.DpiStatus)
			}
			if !state.AllowProceed {
				t.Fatalf("unknown geometry must not block proceed")
			}
		})
	}
}

func TestDefaultStateDoesNotBlockBrowsing(t *testing.T) {
	state := DefaultState()

	if !state.AllowProceed {
		t.Fatalf("default state must allow proceed")
	}
	if state.DpiStatus != DpiStatusWarn {
		t.Fatalf("expected warn status before upload, got %s", state.DpiStatus)
	}
	if state.EffectiveDpi != nil {
		t.Fatalf("expected nil dpi before upload")
	}
	if state.ResolutionMessage.Tone != ToneCaution {
		t.Fatalf("expected caution tone before upload, got %s", state.ResolutionMessage.Tone)
	}
}
