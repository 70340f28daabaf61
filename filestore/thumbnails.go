// Copyright (c) 2025 The DataKeep Authors
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to
// use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies
// of the Software, and to permit persons to whom the Software is furnished to do
// so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package filestore

import (
	"image"
	"image/draw"
	"image/gif"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"github.com/datakeep/datakeep/config"
)

// thumbnails fit inside a 300x300 box
const thumbnailSize = 300

// GenerateThumbnail renders a thumbnail of an image file into the thumbnail
// storage, named after the revision. GIFs keep their animation: every frame
// is resized and the delays are preserved. The stored extension is returned
// so the caller can record it on the revision.
func GenerateThumbnail(sourcePath string, revisionUuid uuid.UUID) (string, error) {
	extension := strings.TrimPrefix(strings.ToLower(filepath.Ext(sourcePath)), ".")
	if extension == "gif" {
		destination := thumbnailPath(revisionUuid, "gif")
		if err := resizeGif(sourcePath, destination); err != nil {
			return "", err
		}
		return "gif", nil
	}

	source, err := imaging.Open(sourcePath, imaging.AutoOrientation(true))
	if err != nil {
		return "", err
	}
	resized := imaging.Fit(source, thumbnailSize, thumbnailSize, imaging.Lanczos)
	if extension != "jpg" && extension != "jpeg" {
		extension = "png"
	}
	if err := imaging.Save(resized, thumbnailPath(revisionUuid, extension)); err != nil {
		return "", err
	}
	return extension, nil
}

// resizeGif scales an animated GIF frame by frame, keeping the palette and
// the frame delays.
func resizeGif(sourcePath, destinationPath string) error {
	source, err := os.Open(sourcePath)
	if err != nil {
		return err
	}
	animation, err := gif.DecodeAll(source)
	source.Close()
	if err != nil {
		return err
	}

	for i, frame := range animation.Image {
		resized := imaging.Fit(frame, thumbnailSize, thumbnailSize, imaging.Lanczos)
		paletted := image.NewPaletted(resized.Bounds(), frame.Palette)
		draw.FloydSteinberg.Draw(paletted, resized.Bounds(), resized, image.Point{})
		animation.Image[i] = paletted
	}
	first := animation.Image[0].Bounds()
	animation.Config.Width = first.Dx()
	animation.Config.Height = first.Dy()

	destination, err := os.Create(destinationPath)
	if err != nil {
		return err
	}
	if err := gif.EncodeAll(destination, animation); err != nil {
		destination.Close()
		return err
	}
	return destination.Close()
}

func thumbnailPath(revisionUuid uuid.UUID, extension string) string {
	return filepath.Join(config.Storage.ThumbnailStorage,
		revisionUuid.String()+"."+extension)
}

// SaveProfileImage stores an account's profile picture.
func SaveProfileImage(accountUuid uuid.UUID, source io.Reader) error {
	path := filepath.Join(config.Storage.ProfileImagesStorage, accountUuid.String())
	destination, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(destination, source); err != nil {
		destination.Close()
		return err
	}
	return destination.Close()
}

// OpenProfileImage opens an account's profile picture for delivery.
func OpenProfileImage(accountUuid uuid.UUID) (io.ReadCloser, error) {
	path := filepath.Join(config.Storage.ProfileImagesStorage, accountUuid.String())
	reader, err := os.Open(path)
	if err != nil {
		return nil, &FileMissingError{Path: path}
	}
	return reader, nil
}
