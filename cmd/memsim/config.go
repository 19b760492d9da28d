package main

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/pelletier/go-toml"
	"github.com/vkngwrapper/memsim/memutils"
	"github.com/vkngwrapper/memsim/memutils/metadata"
	"github.com/vkngwrapper/memsim/process"
	"github.com/vkngwrapper/memsim/sim"
)

// modelFile is the TOML layout accepted by --config. Every field is optional: zero values
// fall back to the simulator's defaults.
type modelFile struct {
	Model           string `toml:"model"`
	Policy          string `toml:"policy"`
	AutoCompact     bool   `toml:"auto_compact"`
	EagerCompaction bool   `toml:"eager_compaction"`
	NoSeeds         bool   `toml:"no_seeds"`

	TotalMemory    int `toml:"total_memory"`
	OSMemory       int `toml:"os_memory"`
	PartitionCount int `toml:"partition_count"`
	PartitionSize  int `toml:"partition_size"`

	Partitions []partitionConfig `toml:"partition"`
	Processes  []processConfig   `toml:"process"`
}

type partitionConfig struct {
	Label string `toml:"label"`
	// Address is the hex byte address of the partition. When empty, the partition starts
	// where the previous one ended.
	Address  string `toml:"address"`
	Size     int    `toml:"size"`
	Reserved bool   `toml:"reserved"`
}

type processConfig struct {
	Name     string          `toml:"name"`
	Size     int             `toml:"size"`
	Segments []segmentConfig `toml:"segment"`
}

type segmentConfig struct {
	Name string `toml:"name"`
	Size int    `toml:"size"`
}

func loadModelFile(path string) (modelFile, error) {
	var file modelFile

	data, err := os.ReadFile(path)
	if err != nil {
		return file, errors.Wrapf(err, "failed to read model file %s", path)
	}

	err = parseModelFile(data, &file)
	if err != nil {
		return file, errors.Wrapf(err, "invalid model file %s", path)
	}

	return file, nil
}

func parseModelFile(data []byte, file *modelFile) error {
	return toml.Unmarshal(data, file)
}

func (f modelFile) options() (sim.CreateOptions, error) {
	options := sim.CreateOptions{
		AutoCompact:     f.AutoCompact,
		EagerCompaction: f.EagerCompaction,
		TotalMemory:     f.TotalMemory,
		OSMemory:        f.OSMemory,
		PartitionCount:  f.PartitionCount,
		PartitionSize:   f.PartitionSize,
	}

	var err error
	if f.Model != "" {
		options.Model, err = sim.ParseModel(f.Model)
		if err != nil {
			return options, err
		}
	}

	if f.Policy != "" {
		options.FitPolicy, err = metadata.ParseFitPolicy(f.Policy)
		if err != nil {
			return options, err
		}
	}

	if f.NoSeeds {
		options.Flags |= sim.CreateWithoutSeeds
	}

	offset := 0
	for index, partition := range f.Partitions {
		if partition.Address != "" {
			offset, err = memutils.ParseHexAddress(partition.Address)
			if err != nil {
				return options, errors.Wrapf(err, "partition %d", index)
			}
		}

		options.Partitions = append(options.Partitions, metadata.PartitionSpec{
			Label:    partition.Label,
			Offset:   offset,
			Size:     partition.Size,
			Reserved: partition.Reserved,
		})
		offset += partition.Size
	}

	if len(f.Processes) > 0 {
		options.SeedProcesses = make([]sim.SeedProcess, 0, len(f.Processes))
	}
	for _, p := range f.Processes {
		seed := sim.SeedProcess{Name: p.Name, Size: p.Size}
		for _, segment := range p.Segments {
			seed.Segments = append(seed.Segments, process.Segment{Name: segment.Name, Size: segment.Size})
		}
		options.SeedProcesses = append(options.SeedProcesses, seed)
	}

	return options, nil
}
