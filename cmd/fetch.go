// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-getter/v2"
	"github.com/urfave/cli/v3"
)

// ErrGetConfigFile is returned when a remote configuration cannot be fetched.
var ErrGetConfigFile = errors.New("failed to get configuration file")

const (
	goGetterForcedSeparator = "::"
	goGetterSchemeSeparator = "://"
	goGetterPathSeparator   = "//"
	goGetterRefSeparator    = "?"
	minimumGetterParts      = 3 // scheme, host and path
)

// fetchedConfigDir holds the temporary directory of a fetched configuration.
// It lives until after removes it so stage helpers can re-read the file.
var fetchedConfigDir string

// isGetterURL reports whether src needs go-getter. Plain paths are read as is.
func isGetterURL(src string) bool {
	return strings.Contains(src, goGetterForcedSeparator) || strings.Contains(src, goGetterSchemeSeparator)
}

// fetchConfig downloads src with go-getter and stores it in a temporary
// directory under its original file name, so the extension still selects the
// decoder. It returns the local path.
func fetchConfig(ctx context.Context, src string) (string, error) {
	if src == "" {
		return "", ErrGetConfigFile
	}

	tmpDir, err := os.MkdirTemp("", "mysh-config-*")
	if err != nil {
		return "", errors.Join(ErrGetConfigFile, err)
	}

	data, fileName, err := getURL(ctx, src, tmpDir)
	if err != nil {
		_ = os.RemoveAll(tmpDir)
		return "", err
	}

	path := filepath.Join(tmpDir, fileName)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		_ = os.RemoveAll(tmpDir)
		return "", errors.Join(ErrGetConfigFile, err)
	}

	fetchedConfigDir = tmpDir

	return path, nil
}

// getURL retrieves src below tmpDir and returns the file content and name.
func getURL(ctx context.Context, src, tmpDir string) ([]byte, string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, "", errors.Join(ErrGetConfigFile, err)
	}

	client := getter.Client{
		DisableSymlinks: true,
	}

	req := &getter.Request{
		Src:     src,
		Dst:     filepath.Join(tmpDir, "g"),
		Pwd:     wd,
		GetMode: getter.ModeDir,
	}

	var fileName string

	// Non-file getters fetch the enclosing directory, the file is picked from it.
	if ok, err := getter.Detect(req, &getter.FileGetter{}); !ok || err != nil {
		if err != nil {
			return nil, "", errors.Join(ErrGetConfigFile, err)
		}

		var newURL string

		newURL, fileName = splitFileNameFromGetterURL(src)
		if newURL == "" || fileName == "" {
			return nil, "", fmt.Errorf("%w: invalid URL format: %s", ErrGetConfigFile, src)
		}

		req.Src = newURL
	}

	if fileName == "" {
		req.Src = filepath.Dir(src)
		fileName = filepath.Base(src)
	}

	res, err := client.Get(ctx, req)
	if err != nil {
		return nil, "", errors.Join(ErrGetConfigFile, err)
	}

	data, err := os.ReadFile(filepath.Join(res.Dst, fileName))
	if err != nil {
		return nil, "", errors.Join(ErrGetConfigFile, err)
	}

	return data, fileName, nil
}

// splitFileNameFromGetterURL splits a getter URL such as
// git::https://host/repo.git//dir/mysh.yaml?ref=v1 into the directory URL,
// keeping any ref, and the file name.
func splitFileNameFromGetterURL(src string) (string, string) {
	var ref string

	parts := strings.Split(src, goGetterPathSeparator)
	if len(parts) < minimumGetterParts {
		return "", ""
	}

	last := parts[len(parts)-1]
	if before, after, ok := strings.Cut(last, goGetterRefSeparator); ok {
		last, ref = before, after
	}

	if filepath.Clean(last) == filepath.Dir(last) {
		return "", ""
	}

	fileName := filepath.Base(last)

	parts[len(parts)-1] = filepath.Dir(last)
	if parts[len(parts)-1] == "." {
		parts = parts[:len(parts)-1]
	}

	newURL := strings.Join(parts, goGetterPathSeparator)
	if ref != "" {
		newURL += goGetterRefSeparator + ref
	}

	return newURL, fileName
}

// after removes a fetched configuration once the command has finished.
func after(context.Context, *cli.Command) error {
	if fetchedConfigDir == "" {
		return nil
	}

	err := os.RemoveAll(fetchedConfigDir)
	fetchedConfigDir = ""

	return err
}
