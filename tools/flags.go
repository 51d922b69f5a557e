package tools

import (
	"flag"
	"log"
)

const (
	CommandPack   = "pack"
	CommandUnpack = "unpack"
	CommandVerify = "verify"
)

type FlagsGlobal struct {
	Help    *bool `json:"help"`
	Version *bool `json:"version"`
}

type PackerFlags struct {
	Input                *string `json:"input"`
	ConfigFile           *string `json:"config"`
	KDTreeMaxDepth       *int    `json:"kd_tree_max_depth"`
	EdgeThresholdDegrees *float64
	SourceSrid           *int
	TargetSrid           *int
	ZOffset              *float64
	FolderProcessing     *bool
	Recursive            *bool
}

type FlagsForCommandPack struct {
	PackerFlags
	Output       *string
	DumpTilesDir *string
	Silent       *bool
	LogTimestamp *bool
	Help         *bool
	Version      *bool
}

type FlagsForCommandUnpack struct {
	Input  *string
	Silent *bool
	Help   *bool
}

type FlagsForCommandVerify struct {
	PackerFlags
	Silent *bool
	Help   *bool
}

func ParseFlagsGlobal() FlagsGlobal {
	help := defineBoolFlag("help", "h", false, "Displays this help.")
	version := defineBoolFlag("version", "v", false, "Displays the version of goxkt.")

	flag.Parse()

	return FlagsGlobal{
		Help:    help,
		Version: version,
	}
}

func definePackerFlags(flagCommand *flag.FlagSet) PackerFlags {
	input := defineStringFlagCommand(flagCommand, "input", "i", "", "Specifies the input scene document file/folder.")
	configFile := defineStringFlagCommand(flagCommand, "config", "c", "", "Optional YAML options file; flags override its values.")
	kdDepth := defineIntFlagCommand(flagCommand, "kd-depth", "d", 0, "Maximum kd-tree depth used to partition entities into tiles. 0 keeps the configured or default depth of 5.")
	edgeThreshold := defineFloat64FlagCommand(flagCommand, "edge-threshold", "a", 0, "Dihedral angle in degrees above which a shared triangle edge becomes a display edge. 0 keeps the configured or default 10.")
	sourceSrid := defineIntFlagCommand(flagCommand, "src-srid", "", 0, "EPSG srid code of source scene coordinates. 0 disables reprojection.")
	targetSrid := defineIntFlagCommand(flagCommand, "dst-srid", "", 0, "EPSG srid code to reproject scene coordinates into. 0 disables reprojection.")
	zOffset := defineFloat64FlagCommand(flagCommand, "zoffset", "z", 0, "Vertical offset to apply to scene coordinates, in meters.")
	folderProcessing := defineBoolFlagCommand(flagCommand, "folder", "f", false, "Enables processing of all scene documents from input folder. Input must be a folder if specified.")
	recursive := defineBoolFlagCommand(flagCommand, "recursive", "r", false, "Enables recursive lookup for scene documents inside subfolders.")

	return PackerFlags{
		Input:                input,
		ConfigFile:           configFile,
		KDTreeMaxDepth:       kdDepth,
		EdgeThresholdDegrees: edgeThreshold,
		SourceSrid:           sourceSrid,
		TargetSrid:           targetSrid,
		ZOffset:              zOffset,
		FolderProcessing:     folderProcessing,
		Recursive:            recursive,
	}
}

func ParseFlagsForCommandPack(args []string) FlagsForCommandPack {
	log.Println(FmtJSONString(args))

	flagCommand := flag.NewFlagSet("command-pack", flag.ExitOnError)

	packerFlags := definePackerFlags(flagCommand)
	output := defineStringFlagCommand(flagCommand, "output", "o", "", "Specifies the output package file, or folder when processing a folder.")
	dumpTilesDir := defineStringFlagCommand(flagCommand, "dump-tiles", "", "", "Writes one debug PLY mesh per tile into the given folder.")
	silent := defineBoolFlagCommand(flagCommand, "silent", "s", false, "Use to suppress all the non-error messages.")
	logTimestamp := defineBoolFlagCommand(flagCommand, "timestamp", "t", false, "Adds timestamp to log messages.")
	help := defineBoolFlagCommand(flagCommand, "help", "h", false, "Displays this help.")
	version := defineBoolFlagCommand(flagCommand, "version", "v", false, "Displays the version of goxkt.")

	flagCommand.Parse(args)

	return FlagsForCommandPack{
		PackerFlags:  packerFlags,
		Output:       output,
		DumpTilesDir: dumpTilesDir,
		Silent:       silent,
		LogTimestamp: logTimestamp,
		Help:         help,
		Version:      version,
	}
}

func ParseFlagsForCommandUnpack(args []string) FlagsForCommandUnpack {
	log.Println(FmtJSONString(args))

	flagCommand := flag.NewFlagSet("command-unpack", flag.ExitOnError)

	input := defineStringFlagCommand(flagCommand, "input", "i", "", "Specifies the input package file.")
	silent := defineBoolFlagCommand(flagCommand, "silent", "s", false, "Use to suppress all the non-error messages.")
	help := defineBoolFlagCommand(flagCommand, "help", "h", false, "Displays this help.")

	flagCommand.Parse(args)

	return FlagsForCommandUnpack{
		Input:  input,
		Silent: silent,
		Help:   help,
	}
}

func ParseFlagsForCommandVerify(args []string) FlagsForCommandVerify {
	log.Println(FmtJSONString(args))

	flagCommand := flag.NewFlagSet("command-verify", flag.ExitOnError)

	packerFlags := definePackerFlags(flagCommand)
	silent := defineBoolFlagCommand(flagCommand, "silent", "s", false, "Use to suppress all the non-error messages.")
	help := defineBoolFlagCommand(flagCommand, "help", "h", false, "Displays this help.")

	flagCommand.Parse(args)

	return FlagsForCommandVerify{
		PackerFlags: packerFlags,
		Silent:      silent,
		Help:        help,
	}
}

func defineBoolFlag(name string, shortHand string, defaultValue bool, usage string) *bool {
	var output bool
	flag.BoolVar(&output, name, defaultValue, usage)
	if shortHand != name {
		flag.BoolVar(&output, shortHand, defaultValue, usage+" (shorthand for "+name+")")
	}
	return &output
}

func defineStringFlagCommand(flagCommand *flag.FlagSet, name string, shortHand string, defaultValue string, usage string) *string {
	var output string
	flagCommand.StringVar(&output, name, defaultValue, usage)
	if shortHand != name && shortHand != "" {
		flagCommand.StringVar(&output, shortHand, defaultValue, usage+" (shorthand for "+name+")")
	}

	return &output
}

func defineIntFlagCommand(flagCommand *flag.FlagSet, name string, shortHand string, defaultValue int, usage string) *int {
	var output int
	flagCommand.IntVar(&output, name, defaultValue, usage)
	if shortHand != name && shortHand != "" {
		flagCommand.IntVar(&output, shortHand, defaultValue, usage+" (shorthand for "+name+")")
	}

	return &output
}

func defineFloat64FlagCommand(flagCommand *flag.FlagSet, name string, shortHand string, defaultValue float64, usage string) *float64 {
	var output float64
	flagCommand.Float64Var(&output, name, defaultValue, usage)
	if shortHand != name && shortHand != "" {
		flagCommand.Float64Var(&output, shortHand, defaultValue, usage+" (shorthand for "+name+")")
	}
	return &output
}

func defineBoolFlagCommand(flagCommand *flag.FlagSet, name string, shortHand string, defaultValue bool, usage string) *bool {
	var output bool
	flagCommand.BoolVar(&output, name, defaultValue, usage)
	if shortHand != name && shortHand != "" {
		flagCommand.BoolVar(&output, shortHand, defaultValue, usage+" (shorthand for "+name+")")
	}
	return &output
}
