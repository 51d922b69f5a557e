package tools

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/golang/glog"

	"github.com/nachomanzano/goxkt/internal/pack"
)

type FileFinder interface {
	GetSceneFilesToProcess(opts *pack.Options) []string
}

type StandardFileFinder struct{}

func NewStandardFileFinder() FileFinder {
	return &StandardFileFinder{}
}

func (f *StandardFileFinder) GetSceneFilesToProcess(opts *pack.Options) []string {
	// If folder processing is not enabled then the scene document is given by
	// the -input flag, otherwise look for documents in the -input folder,
	// excluding nested folders unless the Recursive flag is set.
	if !opts.FolderProcessing {
		return []string{opts.Input}
	}

	return f.getSceneFilesFromInputFolder(opts)
}

func (f *StandardFileFinder) getSceneFilesFromInputFolder(opts *pack.Options) []string {
	var sceneFiles = make([]string, 0)

	baseInfo, _ := os.Stat(opts.Input)
	err := filepath.Walk(
		opts.Input,
		func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() && !opts.Recursive && !os.SameFile(info, baseInfo) {
				return filepath.SkipDir
			}
			if strings.ToLower(filepath.Ext(info.Name())) == ".json" {
				sceneFiles = append(sceneFiles, path)
			}
			return nil
		},
	)

	if err != nil {
		glog.Fatal(err)
	}

	return sceneFiles
}
