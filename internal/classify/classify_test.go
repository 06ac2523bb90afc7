package classify

import (
	"testing"

	"github.com/nao1215/contactscan/internal/model"
)

func candidates(addrs ...string) []model.EmailCandidate {
	out := make([]model.EmailCandidate, len(addrs))
	for i, a := range addrs {
		out[i] = model.EmailCandidate{Raw: a, Decoded: a, Source: model.PatternPlain}
	}
	return out
}

func TestIsBusinessLike(t *testing.T) {
	t.Parallel()

	tests := []struct {
		address string
		want    bool
	}{
		{"info@firm.pk", true},
		{"INFO@firm.pk", true},
		{"sales.pk@firm.pk", true},
		{"support-team@firm.pk", true},
		{"hr_lahore@firm.pk", true},
		{"information@firm.pk", true},
		{"infodesk@firm.pk", true},
		{"john.smith@gmail.com", false},
		{"Ayesha.Khan@firm.pk", false},
		{"john.smith2@gmail.com", true},
		{"j.smith@gmail.com", true},
		{"john@gmail.com", true},
		{"a.b.c@firm.pk", true},
		{"contact.us@firm.pk", true},
	}

	c := New()
	for _, tt := range tests {
		t.Run(tt.address, func(t *testing.T) {
			t.Parallel()

			if got := c.IsBusinessLike(tt.address); got != tt.want {
				t.Errorf("IsBusinessLike(%q) = %v, want %v", tt.address, got, tt.want)
			}
		})
	}
}

func TestIsBusinessLike_CustomPrefixes(t *testing.T) {
	t.Parallel()

	c := New(WithPrefixes([]string{" Admissions ", ""}))
	if !c.IsBusinessLike("admissions.office@school.edu.pk") {
		t.Error("custom prefix should match")
	}
	if c.IsBusinessLike("sales.desk@school.edu.pk") {
		t.Error("default prefixes should be replaced")
	}
}

func TestFilter(t *testing.T) {
	t.Parallel()

	t.Run("keeps business addresses in order", func(t *testing.T) {
		t.Parallel()

		got := New().Filter(candidates("john.smith@firm.pk", "sales@firm.pk", "info@firm.pk"))
		if len(got) != 2 || got[0].Address != "sales@firm.pk" || got[1].Address != "info@firm.pk" {
			t.Errorf("unexpected result %+v", got)
		}
		for _, a := range got {
			if !a.IsBusinessLike {
				t.Errorf("%s should be flagged business-like", a.Address)
			}
		}
	})

	t.Run("returns everything when nothing is business-like", func(t *testing.T) {
		t.Parallel()

		in := candidates("john.smith@firm.pk", "ayesha.khan@firm.pk")
		got := New().Filter(in)
		if len(got) != len(in) {
			t.Fatalf("expected all %d candidates, got %+v", len(in), got)
		}
		if got[0].IsBusinessLike {
			t.Error("fallback should keep the personal flag")
		}
	})

	t.Run("fallback disabled may return empty", func(t *testing.T) {
		t.Parallel()

		got := New(WithKeepAllWhenNoBusiness(false)).Filter(candidates("john.smith@firm.pk"))
		if len(got) != 0 {
			t.Errorf("expected empty result, got %+v", got)
		}
	})

	t.Run("empty input stays empty", func(t *testing.T) {
		t.Parallel()

		if got := New().Filter(nil); len(got) != 0 {
			t.Errorf("expected empty result, got %+v", got)
		}
	})
}

func TestClassify(t *testing.T) {
	t.Parallel()

	got := New().Classify(candidates("john.smith@firm.pk", "info@firm.pk"))
	if len(got) != 2 || got[0].IsBusinessLike || !got[1].IsBusinessLike {
		t.Errorf("unexpected flags %+v", got)
	}
}
