package sim

import (
	"github.com/vkngwrapper/memsim/memutils/metadata"
	"github.com/vkngwrapper/memsim/process"
)

// DefaultPartitionTable returns the variable static model's default table: a 1 MiB operating
// system partition followed by pairs of 512 KiB, 1 MiB, 2 MiB and 4 MiB partitions
func DefaultPartitionTable() []metadata.PartitionSpec {
	return []metadata.PartitionSpec{
		{Label: "SO", Offset: 0, Size: 1024, Reserved: true},
		{Label: "P0", Offset: 1024, Size: 512},
		{Label: "P1", Offset: 1536, Size: 512},
		{Label: "P2", Offset: 2048, Size: 1024},
		{Label: "P3", Offset: 3072, Size: 1024},
		{Label: "P4", Offset: 4096, Size: 2048},
		{Label: "P5", Offset: 6144, Size: 2048},
		{Label: "P6", Offset: 8192, Size: 4096},
		{Label: "P7", Offset: 12288, Size: 4096},
	}
}

func seg(name string, size int) process.Segment {
	return process.Segment{Name: name, Size: size}
}

var partitionedSeeds = []SeedProcess{
	{"Text Editor", 512, []process.Segment{seg("Code", 256), seg("Data", 128), seg("Buffer", 128)}},
	{"Web Browser", 800, []process.Segment{seg("JS Engine", 350), seg("Renderer", 300), seg("Cache", 150)}},
	{"Database", 600, []process.Segment{seg("Engine", 250), seg("Indexes", 150), seg("Buffer", 200)}},
	{"Compiler", 400, []process.Segment{seg("Parser", 120), seg("Optimizer", 160), seg("Generator", 120)}},
	{"Graphics System", 900, []process.Segment{seg("Drivers", 250), seg("OpenGL", 350), seg("Textures", 300)}},
	{"Large Server", 1500, []process.Segment{seg("System", 500), seg("Cache", 600), seg("Buffers", 400)}},
}

var variableOnlySeeds = []SeedProcess{
	{"Massive System", 3500, []process.Segment{seg("Kernel", 1000), seg("Drivers", 1500), seg("Buffers", 1000)}},
	{"Huge Application", 5000, []process.Segment{seg("Framework", 2000), seg("Data", 2000), seg("Cache", 1000)}},
}

// DefaultSeeds returns the processes a model starts with. The fixed equal model gets six
// processes, one of which can never fit a partition; the variable static model adds two large
// ones; the dynamic model starts empty.
func DefaultSeeds(model Model) []SeedProcess {
	var seeds []SeedProcess
	switch model {
	case ModelFixedEqual:
		seeds = append(seeds, partitionedSeeds...)
	case ModelVariableStatic:
		seeds = append(seeds, partitionedSeeds...)
		seeds = append(seeds, variableOnlySeeds...)
	}

	return seeds
}
