package normalizer

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/suite"

	"caseline/pkg/domain"
	dErrors "caseline/pkg/domain-errors"

	"caseline/internal/timeline/delegate"
	"caseline/internal/timeline/models"
)

type NormalizerSuite struct {
	suite.Suite
	registry   *delegate.Registry
	normalizer *Normalizer
}

func TestNormalizerSuite(t *testing.T) {
	suite.Run(t, new(NormalizerSuite))
}

func (s *NormalizerSuite) SetupTest() {
	s.registry = delegate.NewRegistry()
	s.normalizer = New()
}

func incarceration(seq int64, start time.Time, end *time.Time, facility string) models.Period {
	return models.Period{
		Kind:  models.KindIncarceration,
		Seq:   domain.SequenceID(seq),
		Start: start,
		End:   end,
		Attrs: models.Attributes{Facility: facility},
	}
}

func supervision(seq int64, start time.Time, end *time.Time, supType string) models.Period {
	return models.Period{
		Kind:  models.KindSupervision,
		Seq:   domain.SequenceID(seq),
		Start: start,
		End:   end,
		Attrs: models.Attributes{SupervisionType: supType},
	}
}

func (s *NormalizerSuite) TestMergesTouchingPeriods() {
	// Two back-to-back incarceration periods collapse into one.
	raw := []models.Period{
		incarceration(1, models.Date(2020, 1, 1), models.DatePtr(2020, 3, 1), "FAC-A"),
		incarceration(2, models.Date(2020, 3, 1), models.DatePtr(2020, 6, 1), "FAC-A"),
	}

	out, err := s.normalizer.Normalize(s.registry.Default(), models.KindIncarceration, raw)
	s.Require().NoError(err)
	s.Require().Len(out, 1)
	s.Equal(models.Date(2020, 1, 1), out[0].Start)
	s.Require().NotNil(out[0].End)
	s.Equal(models.Date(2020, 6, 1), *out[0].End)
}

func (s *NormalizerSuite) TestMergesOverlappingPeriods() {
	raw := []models.Period{
		supervision(1, models.Date(2020, 1, 1), models.DatePtr(2020, 4, 1), "parole"),
		supervision(2, models.Date(2020, 2, 1), models.DatePtr(2020, 5, 1), "parole"),
	}

	out, err := s.normalizer.Normalize(s.registry.Default(), models.KindSupervision, raw)
	s.Require().NoError(err)
	s.Require().Len(out, 1)
	s.Equal(models.Date(2020, 1, 1), out[0].Start)
	s.Require().NotNil(out[0].End)
	s.Equal(models.Date(2020, 5, 1), *out[0].End)
}

func (s *NormalizerSuite) TestOverlapWithDifferentAttributes() {
	s.Run("later record governs from its start", func() {
		raw := []models.Period{
			incarceration(1, models.Date(2020, 1, 1), models.DatePtr(2020, 4, 1), "FAC-A"),
			incarceration(2, models.Date(2020, 2, 1), models.DatePtr(2020, 4, 1), "FAC-B"),
		}
		out, err := s.normalizer.Normalize(s.registry.Default(), models.KindIncarceration, raw)
		s.Require().NoError(err)
		s.Require().Len(out, 2)
		s.Equal("FAC-A", out[0].Attrs.Facility)
		s.Equal(models.Date(2020, 2, 1), *out[0].End)
		s.Equal("FAC-B", out[1].Attrs.Facility)
	})

	s.Run("nested record preserves trailing coverage", func() {
		raw := []models.Period{
			incarceration(1, models.Date(2020, 1, 1), models.DatePtr(2020, 6, 1), "FAC-A"),
			incarceration(2, models.Date(2020, 2, 1), models.DatePtr(2020, 3, 1), "FAC-B"),
		}
		out, err := s.normalizer.Normalize(s.registry.Default(), models.KindIncarceration, raw)
		s.Require().NoError(err)
		s.Require().Len(out, 3)
		s.Equal("FAC-A", out[0].Attrs.Facility)
		s.Equal(models.Date(2020, 2, 1), *out[0].End)
		s.Equal("FAC-B", out[1].Attrs.Facility)
		s.Equal("FAC-A", out[2].Attrs.Facility)
		s.Equal(models.Date(2020, 3, 1), out[2].Start)
		s.Equal(models.Date(2020, 6, 1), *out[2].End)
	})

	s.Run("duplicate start resolved by sequence id", func() {
		raw := []models.Period{
			incarceration(2, models.Date(2020, 1, 1), models.DatePtr(2020, 4, 1), "FAC-B"),
			incarceration(1, models.Date(2020, 1, 1), models.DatePtr(2020, 4, 1), "FAC-A"),
		}
		out, err := s.normalizer.Normalize(s.registry.Default(), models.KindIncarceration, raw)
		s.Require().NoError(err)
		s.Require().Len(out, 1)
		// Seq 1 sorts first, gets truncated to zero length at seq 2's start,
		// and drops; the higher-sequence record wins.
		s.Equal("FAC-B", out[0].Attrs.Facility)
	})
}

func (s *NormalizerSuite) TestZeroDurationPeriods() {
	zero := []models.Period{
		incarceration(1, models.Date(2020, 5, 5), models.DatePtr(2020, 5, 5), "FAC-A"),
	}

	s.Run("dropped by default", func() {
		out, err := s.normalizer.Normalize(s.registry.Default(), models.KindIncarceration, zero)
		s.Require().NoError(err)
		s.Empty(out)
	})

	s.Run("kept when the jurisdiction marks them meaningful", func() {
		del, ok := s.registry.Resolve("US-TN")
		s.Require().True(ok)
		out, err := s.normalizer.Normalize(del, models.KindIncarceration, zero)
		s.Require().NoError(err)
		s.Require().Len(out, 1)
		s.True(out[0].ZeroDuration())
	})

	s.Run("violation responses are dated signals, kept everywhere", func() {
		signal := []models.Period{
			{
				Kind:  models.KindViolationResponse,
				Seq:   domain.SequenceID(1),
				Start: models.Date(2020, 3, 15),
				End:   models.DatePtr(2020, 3, 15),
				Attrs: models.Attributes{ResponseDecision: models.DecisionWarning},
			},
		}
		for _, code := range []domain.JurisdictionCode{"US-TN", "US-MO", "US-ND", "US-IX", "US-ZZ"} {
			del, _ := s.registry.Resolve(code)
			out, err := s.normalizer.Normalize(del, models.KindViolationResponse, signal)
			s.Require().NoError(err)
			s.Require().Len(out, 1, "%s must not drop the response signal", code)
			s.True(out[0].ZeroDuration())
		}
	})
}

func (s *NormalizerSuite) TestFatalValidation() {
	s.Run("negative duration is fatal everywhere", func() {
		raw := []models.Period{
			incarceration(1, models.Date(2020, 3, 1), models.DatePtr(2020, 1, 1), "FAC-A"),
		}
		_, err := s.normalizer.Normalize(s.registry.Default(), models.KindIncarceration, raw)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("zero-length supervision is fatal only in US-IX", func() {
		raw := []models.Period{
			supervision(1, models.Date(2020, 5, 5), models.DatePtr(2020, 5, 5), "parole"),
		}

		_, err := s.normalizer.Normalize(s.registry.Default(), models.KindSupervision, raw)
		s.NoError(err)

		ix, ok := s.registry.Resolve("US-IX")
		s.Require().True(ok)
		_, err = s.normalizer.Normalize(ix, models.KindSupervision, raw)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *NormalizerSuite) TestToleranceGap() {
	// US-MO merges continuation records separated by a one-day data entry gap.
	raw := []models.Period{
		supervision(1, models.Date(2020, 1, 1), models.DatePtr(2020, 3, 1), "probation"),
		supervision(2, models.Date(2020, 3, 2), models.DatePtr(2020, 6, 1), "probation"),
	}

	mo, ok := s.registry.Resolve("US-MO")
	s.Require().True(ok)
	out, err := s.normalizer.Normalize(mo, models.KindSupervision, raw)
	s.Require().NoError(err)
	s.Require().Len(out, 1)
	s.Equal(models.Date(2020, 6, 1), *out[0].End)

	// The default delegate keeps them separate.
	out, err = s.normalizer.Normalize(s.registry.Default(), models.KindSupervision, raw)
	s.Require().NoError(err)
	s.Len(out, 2)
}

func (s *NormalizerSuite) TestOpenPeriods() {
	raw := []models.Period{
		supervision(1, models.Date(2020, 1, 1), models.DatePtr(2020, 4, 1), "parole"),
		supervision(2, models.Date(2020, 3, 1), nil, "parole"),
	}

	out, err := s.normalizer.Normalize(s.registry.Default(), models.KindSupervision, raw)
	s.Require().NoError(err)
	s.Require().Len(out, 1)
	s.Nil(out[0].End)
}

func (s *NormalizerSuite) TestKindMismatchIsDefect() {
	raw := []models.Period{
		supervision(1, models.Date(2020, 1, 1), models.DatePtr(2020, 4, 1), "parole"),
	}
	_, err := s.normalizer.Normalize(s.registry.Default(), models.KindIncarceration, raw)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

// messyPeriods is a deliberately noisy input: duplicates, overlaps, nesting,
// zero durations, an open period, and out-of-order arrival.
func messyPeriods() []models.Period {
	return []models.Period{
		incarceration(5, models.Date(2021, 2, 10), models.DatePtr(2021, 2, 10), "FAC-B"),
		incarceration(2, models.Date(2020, 3, 1), models.DatePtr(2020, 6, 1), "FAC-A"),
		incarceration(1, models.Date(2020, 1, 1), models.DatePtr(2020, 3, 1), "FAC-A"),
		incarceration(3, models.Date(2020, 5, 1), models.DatePtr(2020, 9, 1), "FAC-B"),
		incarceration(4, models.Date(2020, 12, 1), nil, "FAC-C"),
		incarceration(6, models.Date(2020, 1, 1), models.DatePtr(2020, 3, 1), "FAC-A"),
	}
}

func (s *NormalizerSuite) TestNoOverlapInvariant() {
	for _, code := range []domain.JurisdictionCode{"US-TN", "US-MO", "US-ND", "US-IX", "US-ZZ"} {
		s.Run(string(code), func() {
			del, _ := s.registry.Resolve(code)
			out, err := s.normalizer.Normalize(del, models.KindIncarceration, messyPeriods())
			s.Require().NoError(err)
			for i := 1; i < len(out); i++ {
				prev, cur := out[i-1], out[i]
				s.False(cur.Start.Before(prev.Start), "output must be start-ordered")
				if prev.ZeroDuration() || cur.ZeroDuration() {
					continue
				}
				s.False(prev.Overlaps(cur),
					"normalized periods must not overlap: %v and %v", prev, cur)
			}
		})
	}
}

func (s *NormalizerSuite) TestIdempotence() {
	for _, code := range []domain.JurisdictionCode{"US-TN", "US-MO", "US-ND", "US-IX", "US-ZZ"} {
		s.Run(string(code), func() {
			del, _ := s.registry.Resolve(code)
			once, err := s.normalizer.Normalize(del, models.KindIncarceration, messyPeriods())
			s.Require().NoError(err)

			asRaw := make([]models.Period, len(once))
			for i, p := range once {
				asRaw[i] = models.Period(p)
			}
			twice, err := s.normalizer.Normalize(del, models.KindIncarceration, asRaw)
			s.Require().NoError(err)
			s.Empty(cmp.Diff(once, twice), "normalizing normalized output must be a no-op")
		})
	}
}

func (s *NormalizerSuite) TestDeterministicAcrossInputOrder() {
	del := s.registry.Default()
	forward := messyPeriods()
	reversed := make([]models.Period, len(forward))
	for i, p := range forward {
		reversed[len(forward)-1-i] = p
	}

	a, err := s.normalizer.Normalize(del, models.KindIncarceration, forward)
	s.Require().NoError(err)
	b, err := s.normalizer.Normalize(del, models.KindIncarceration, reversed)
	s.Require().NoError(err)
	s.Empty(cmp.Diff(a, b))
}
