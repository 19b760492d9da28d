package metadata_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/memsim/memutils/metadata"
)

func regionsOfSizes(sizes ...int) []metadata.Region {
	regions := make([]metadata.Region, 0, len(sizes))
	offset := 0
	for i, size := range sizes {
		regions = append(regions, metadata.Region{
			Handle: metadata.BlockHandle(i),
			Offset: offset,
			Size:   size,
			Free:   true,
		})
		offset += size
	}
	return regions
}

var fitTestCases = map[string]struct {
	Policy         metadata.FitPolicy
	Size           int
	Candidates     []metadata.Region
	ExpectedHandle metadata.BlockHandle
	ExpectFound    bool
}{
	"First Fit Takes Lowest Address": {
		Policy:         metadata.FitFirst,
		Size:           300,
		Candidates:     regionsOfSizes(2048, 512, 1024),
		ExpectedHandle: 0,
		ExpectFound:    true,
	},
	"Best Fit Takes Smallest": {
		Policy:         metadata.FitBest,
		Size:           300,
		Candidates:     regionsOfSizes(2048, 512, 1024),
		ExpectedHandle: 1,
		ExpectFound:    true,
	},
	"Worst Fit Takes Largest": {
		Policy:         metadata.FitWorst,
		Size:           300,
		Candidates:     regionsOfSizes(1024, 512, 2048),
		ExpectedHandle: 2,
		ExpectFound:    true,
	},
	"Best Fit Ties Go To Lowest Address": {
		Policy:         metadata.FitBest,
		Size:           900,
		Candidates:     regionsOfSizes(2048, 1024, 1024, 4096),
		ExpectedHandle: 1,
		ExpectFound:    true,
	},
	"Worst Fit Ties Go To Lowest Address": {
		Policy:         metadata.FitWorst,
		Size:           900,
		Candidates:     regionsOfSizes(1024, 4096, 2048, 4096),
		ExpectedHandle: 1,
		ExpectFound:    true,
	},
	"Empty Candidates": {
		Policy:      metadata.FitBest,
		Size:        100,
		Candidates:  nil,
		ExpectFound: false,
	},
}

func TestSelectFit(t *testing.T) {
	for name, testCase := range fitTestCases {
		t.Run(name, func(t *testing.T) {
			region, found := metadata.SelectFit(testCase.Policy, testCase.Size, testCase.Candidates)
			require.Equal(t, testCase.ExpectFound, found)
			if found {
				require.Equal(t, testCase.ExpectedHandle, region.Handle)
			}
		})
	}
}

func TestSelectFitDoesNotModifyCandidates(t *testing.T) {
	candidates := regionsOfSizes(2048, 512, 1024)
	original := append([]metadata.Region(nil), candidates...)

	_, _ = metadata.SelectFit(metadata.FitBest, 100, candidates)
	_, _ = metadata.SelectFit(metadata.FitWorst, 100, candidates)

	require.Equal(t, original, candidates)
}

func TestEligibleRegions(t *testing.T) {
	regions := regionsOfSizes(1024, 512, 2048, 1024)
	regions[0].Reserved = true
	regions[0].Free = false
	regions[2].Free = false

	eligible := metadata.EligibleRegions(regions, 600)
	require.Len(t, eligible, 1)
	require.Equal(t, metadata.BlockHandle(3), eligible[0].Handle)

	require.Empty(t, metadata.EligibleRegions(regions, 1100))
}

func TestParseFitPolicy(t *testing.T) {
	policy, err := metadata.ParseFitPolicy("best")
	require.NoError(t, err)
	require.Equal(t, metadata.FitBest, policy)

	policy, err = metadata.ParseFitPolicy(" Worst-Fit ")
	require.NoError(t, err)
	require.Equal(t, metadata.FitWorst, policy)

	policy, err = metadata.ParseFitPolicy("first")
	require.NoError(t, err)
	require.Equal(t, metadata.FitFirst, policy)
	require.Equal(t, "first", policy.String())

	_, err = metadata.ParseFitPolicy("next")
	require.Error(t, err)
	require.False(t, metadata.FitPolicy(0).Valid())
}
