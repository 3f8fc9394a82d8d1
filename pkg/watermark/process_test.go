package watermark

import (
	"image/color"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photowatermark/internal/testimg"
	"photowatermark/pkg/photodate"
)

func TestOutputPath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "/photos/IMG_0001.jpg", want: "/photos/IMG_0001_watermark/IMG_0001.jpg"},
		{in: "/photos/trip.2019.png", want: "/photos/trip.2019_watermark/trip.2019.png"},
		{in: "shot.JPEG", want: "shot_watermark/shot.JPEG"},
		{in: "rel/dir/noext", want: "rel/dir/noext_watermark/noext"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, filepath.FromSlash(tt.want), OutputPath(filepath.FromSlash(tt.in)))
		})
	}
}

func TestPrepareOutputIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.jpg")

	first, err := PrepareOutput(src)
	require.NoError(t, err)
	second, err := PrepareOutput(src)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	info, err := os.Stat(filepath.Dir(first))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestProcessRoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "holiday.jpg")
	img := testimg.Solid(320, 200, color.NRGBA{R: 20, G: 40, B: 60, A: 255})
	testimg.WriteFile(t, src, testimg.JPEG(t, img, map[uint16]string{
		testimg.TagDateTimeOriginal: "2019:05:06 07:08:09",
	}))

	opts := Options{Style: DefaultStyle(), Position: BottomRight}
	res, err := Process(src, opts)
	require.NoError(t, err)

	assert.Equal(t, "2019-05-06", res.Text)
	assert.Equal(t, photodate.SourceEXIF, res.Source)
	assert.Equal(t, filepath.Join(dir, "holiday_watermark", "holiday.jpg"), res.OutputPath)

	out, err := imaging.Open(res.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, img.Bounds().Size(), out.Bounds().Size())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	_, err = Process(src, opts)
	require.NoError(t, err)

	entries, err = os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	outEntries, err := os.ReadDir(filepath.Join(dir, "holiday_watermark"))
	require.NoError(t, err)
	assert.Len(t, outEntries, 1)
}

func TestProcessPNGUsesModTime(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "scan.png")
	testimg.WriteFile(t, src, testimg.PNG(t, testimg.Solid(120, 80, color.NRGBA{A: 255})))
	mt := time.Date(2022, 11, 12, 12, 0, 0, 0, time.Local)
	require.NoError(t, os.Chtimes(src, mt, mt))

	res, err := Process(src, Options{Style: DefaultStyle(), Position: TopLeft})
	require.NoError(t, err)
	assert.Equal(t, "2022-11-12", res.Text)
	assert.Equal(t, photodate.SourceModTime, res.Source)

	out, err := imaging.Open(res.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, 120, out.Bounds().Dx())
}

func TestProcessMissingInput(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "ghost.jpg")

	_, err := Process(src, Options{Style: DefaultStyle(), Position: BottomRight})
	assert.ErrorIs(t, err, ErrInputNotFound)
	assert.ErrorIs(t, err, fs.ErrNotExist)

	_, statErr := os.Stat(filepath.Join(dir, "ghost_watermark"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestProcessDirectoryInput(t *testing.T) {
	dir := t.TempDir()

	_, err := Process(dir, Options{Style: DefaultStyle(), Position: BottomRight})
	assert.ErrorIs(t, err, ErrInputNotFound)
	assert.Contains(t, err.Error(), "is a directory")
}

func TestProcessUndecodableInput(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "broken.jpg")
	testimg.WriteFile(t, src, []byte("definitely not a jpeg"))

	_, err := Process(src, Options{Style: DefaultStyle(), Position: BottomRight})
	require.Error(t, err)

	_, statErr := os.Stat(filepath.Join(dir, "broken_watermark"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestProcessRejectsStyleBeforeIO(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.jpg")
	testimg.WriteFile(t, src, testimg.JPEG(t, testimg.Solid(10, 10, color.NRGBA{A: 255}), nil))

	bad := DefaultStyle()
	bad.Opacity = 300
	_, err := Process(src, Options{Style: bad, Position: BottomRight})
	assert.ErrorIs(t, err, ErrInvalidStyle)

	bad = DefaultStyle()
	bad.Color = RGB{256, 0, 0}
	_, err = Process(src, Options{Style: bad, Position: BottomRight})
	assert.ErrorIs(t, err, ErrInvalidStyle)

	_, statErr := os.Stat(filepath.Join(dir, "a_watermark"))
	assert.True(t, os.IsNotExist(statErr))
}
