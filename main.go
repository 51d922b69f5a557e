package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/golang/glog"

	"github.com/nachomanzano/goxkt/internal/pack"
	"github.com/nachomanzano/goxkt/pkg"
	"github.com/nachomanzano/goxkt/tools"
)

const VERSION = "0.6.0"

const logo = `
  __ _  _____  ___| | _| |_
 / _  |/ _ \ \/ / | |/ / __|   streamable geometry packages
| (_| | (_) >  <|   <| |_      for large, finely detailed models
 \__, |\___/_/\_\_|\_\\__|
  __| |
 |___/
`

func main() {
	log.SetPrefix("[goxkt] ")
	log.SetFlags(log.LUTC | log.Ldate | log.Lmicroseconds | log.Lshortfile)
	defer glog.Flush()

	flagsGlobal := tools.ParseFlagsGlobal()
	log.Println(tools.FmtJSONString(flagsGlobal))

	args := flag.Args()
	if len(args) == 0 {
		log.Fatal("Please specify a subcommand [pack|unpack|verify].")
	}
	cmd, args := args[0], args[1:]

	switch cmd {
	case tools.CommandPack:
		mainCommandPack(args)
	case tools.CommandUnpack:
		mainCommandUnpack(args)
	case tools.CommandVerify:
		mainCommandVerify(args)
	default:
		log.Fatalf("Unrecognized command [%q]. Command must be one of [pack|unpack|verify]", cmd)
	}
}

func mainCommandPack(args []string) {
	flags := tools.ParseFlagsForCommandPack(args)

	if *flags.Help {
		showHelp()
		return
	}
	if *flags.Version {
		printVersion()
		return
	}

	if *flags.Silent {
		tools.DisableLogger()
	} else {
		printLogo()
	}
	if *flags.LogTimestamp {
		tools.EnableLoggerTimestamp()
	}

	opts, err := optionsFromPackerFlags(flags.PackerFlags)
	if err != nil {
		log.Fatal("Error loading options: ", err)
	}
	if *flags.Output != "" {
		opts.Output = *flags.Output
	}
	if *flags.DumpTilesDir != "" {
		opts.DumpTilesDir = *flags.DumpTilesDir
	}

	if msg, ok := validateOptionsForCommandPack(opts); !ok {
		log.Fatal("Error parsing input parameters: " + msg)
	}

	if err := pkg.NewPacker(tools.NewStandardFileFinder()).RunPacker(opts); err != nil {
		log.Fatal("Error while packing: ", err)
	}
	tools.LogOutput("Conversion Completed")
}

func mainCommandUnpack(args []string) {
	flags := tools.ParseFlagsForCommandUnpack(args)

	if *flags.Help {
		showHelp()
		return
	}
	if *flags.Silent {
		tools.DisableLogger()
	}

	if *flags.Input == "" {
		log.Fatal("Error parsing input parameters: input package file not specified")
	}
	if _, err := os.Stat(*flags.Input); os.IsNotExist(err) {
		log.Fatal("Error parsing input parameters: input package file not found")
	}

	if err := pkg.NewUnpacker().RunUnpacker(*flags.Input); err != nil {
		log.Fatal("Error while unpacking: ", err)
	}
}

func mainCommandVerify(args []string) {
	flags := tools.ParseFlagsForCommandVerify(args)

	if *flags.Help {
		showHelp()
		return
	}
	if *flags.Silent {
		tools.DisableLogger()
	}

	opts, err := optionsFromPackerFlags(flags.PackerFlags)
	if err != nil {
		log.Fatal("Error loading options: ", err)
	}

	if msg, ok := validateOptionsForCommandPack(opts); !ok {
		log.Fatal("Error parsing input parameters: " + msg)
	}

	if err := pkg.NewVerifier(tools.NewStandardFileFinder()).RunVerify(opts); err != nil {
		log.Fatal("Error while verifying: ", err)
	}
}

// optionsFromPackerFlags layers defaults, then the optional YAML options
// file, then the command line flags.
func optionsFromPackerFlags(flags tools.PackerFlags) (*pack.Options, error) {
	opts := pack.DefaultOptions()
	if *flags.ConfigFile != "" {
		if err := opts.LoadFile(*flags.ConfigFile); err != nil {
			return nil, err
		}
	}

	if *flags.Input != "" {
		opts.Input = *flags.Input
	}
	if *flags.KDTreeMaxDepth != 0 {
		opts.KDTreeMaxDepth = *flags.KDTreeMaxDepth
	}
	if *flags.EdgeThresholdDegrees != 0 {
		opts.EdgeThresholdDegrees = *flags.EdgeThresholdDegrees
	}
	if *flags.SourceSrid != 0 {
		opts.SourceSrid = *flags.SourceSrid
	}
	if *flags.TargetSrid != 0 {
		opts.TargetSrid = *flags.TargetSrid
	}
	if *flags.ZOffset != 0 {
		opts.ZOffset = *flags.ZOffset
	}
	if *flags.FolderProcessing {
		opts.FolderProcessing = true
	}
	if *flags.Recursive {
		opts.Recursive = true
	}
	return opts, nil
}

func validateOptionsForCommandPack(opts *pack.Options) (string, bool) {
	if opts.Input == "" {
		return "input scene document not specified", false
	}
	if _, err := os.Stat(opts.Input); os.IsNotExist(err) {
		return "input file/folder not found", false
	}
	if (opts.SourceSrid == 0) != (opts.TargetSrid == 0) {
		return "src-srid and dst-srid must be specified together", false
	}
	if opts.KDTreeMaxDepth < 1 {
		return "kd-depth must be at least 1", false
	}
	return "", true
}

func printLogo() {
	fmt.Print(logo)
}

func showHelp() {
	printLogo()
	fmt.Println("***")
	fmt.Println("goxkt converts pre-resolved triangle-mesh scenes into compact streamable geometry packages")
	printVersion()
	fmt.Println("***")
	fmt.Println("")
	fmt.Println("Command line flags: ")
	flag.CommandLine.SetOutput(os.Stdout)
	flag.PrintDefaults()
}

func printVersion() {
	fmt.Println("v." + VERSION)
}
