// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// Copyright (c) 2022-2024 HexInfra Co., Ltd.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// The static handler serves requests from the local file system.

package gemini

import (
	"os"
	"path/filepath"
	"strings"
)

// StaticHandler serves gemini pages and files from a root directory.
type StaticHandler struct {
	// Parent
	Handler_
	// States
	rootDir          string            // canonical absolute root. nothing outside it is ever served
	indexFile        string            // served for directory paths when present
	directoryListing bool              // generate a listing when the index file is absent?
	mimeTypes        map[string]string // indexed by extension, without the dot
	defaultMimeType  string            // for unknown extensions
}

func NewStaticHandler(rootDir string, directoryListing bool, indexFile string) (*StaticHandler, error) {
	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, ConfigErrorf("static: bad root directory %q", rootDir)
	}
	if resolved, err := filepath.EvalSymlinks(absRoot); err == nil {
		absRoot = resolved
	}
	if info, err := os.Stat(absRoot); err != nil || !info.IsDir() {
		return nil, ConfigErrorf("static: %s is not a directory", absRoot)
	}
	if indexFile == "" {
		indexFile = defaultIndexFile
	}
	h := new(StaticHandler)
	h.rootDir = absRoot
	h.indexFile = indexFile
	h.directoryListing = directoryListing
	h.mimeTypes = staticDefaultMimeTypes
	h.defaultMimeType = octetStreamType
	return h, nil
}

func (h *StaticHandler) RootDir() string { return h.rootDir }

func (h *StaticHandler) GetResponse(req *Request) (Response, error) {
	path := req.Path()
	if prefix := req.RoutePrefix(); prefix != "" && strings.HasPrefix(path, prefix) {
		path = path[len(prefix):]
	}
	hasSlash := path == "" || strings.HasSuffix(path, "/")
	path = strings.TrimPrefix(path, "/")

	// Containment comes first. A path that escapes the root must not reach
	// the redirect branch, or the existence of outside directories leaks.
	fullPath, _, err := containPath(filepath.Join(h.rootDir, path), h.rootDir)
	if err != nil {
		return nil, os.ErrNotExist
	}
	info, err := os.Stat(fullPath)
	if err != nil {
		return nil, os.ErrNotExist
	}
	if info.IsDir() {
		if !hasSlash {
			// A directory link without the trailing separator would break
			// the page's relative links.
			return NewPermanentRedirectResponse(req.Path() + "/")
		}
		indexPath := filepath.Join(fullPath, h.indexFile)
		if info, err := os.Stat(indexPath); err == nil && info.Mode().IsRegular() {
			return NewDocumentResponse(indexPath, h.rootDir)
		}
		if h.directoryListing {
			return NewDirectoryListingResponse(fullPath, h.rootDir)
		}
		return nil, os.ErrNotExist
	}
	return NewDocumentResponse(fullPath, h.rootDir)
}

// mimeTypeByExtension detects the mimetype of a file path by its extension.
func mimeTypeByExtension(path string) string {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if mimeType, ok := staticDefaultMimeTypes[ext]; ok {
		return mimeType
	}
	return octetStreamType
}

var staticDefaultMimeTypes = map[string]string{
	"7z":     "application/x-7z-compressed",
	"atom":   "application/atom+xml",
	"bin":    "application/octet-stream",
	"bmp":    "image/x-ms-bmp",
	"css":    "text/css",
	"gemini": "text/gemini",
	"gif":    "image/gif",
	"gmi":    "text/gemini",
	"htm":    "text/html",
	"html":   "text/html",
	"ico":    "image/x-icon",
	"jpeg":   "image/jpeg",
	"jpg":    "image/jpeg",
	"js":     "application/javascript",
	"json":   "application/json",
	"md":     "text/markdown",
	"mp3":    "audio/mpeg",
	"mp4":    "video/mp4",
	"pdf":    "application/pdf",
	"png":    "image/png",
	"rss":    "application/rss+xml",
	"svg":    "image/svg+xml",
	"txt":    "text/plain",
	"webm":   "video/webm",
	"webp":   "image/webp",
	"xml":    "text/xml",
	"zip":    "application/zip",
}
