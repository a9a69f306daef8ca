package world

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"voxelgen/internal/blocks"
)

const (
	previewTileWidth    = 8
	previewTileHeight   = 4
	previewBlockHeight  = 4
	previewAmbientLight = 0.2
)

type voxelPreview struct {
	x, y, z int
	voxel   Voxel
	screenX int
	screenY int
}

// PreviewPath returns the file a preview of key is written to.
func PreviewPath(outputDir string, key Key) string {
	name := strings.NewReplacer("/", "_", "\\", "_").Replace(key.String())
	return filepath.Join(outputDir, name+".png")
}

// SaveChunkPreview renders an isometric preview PNG of the chunk's exposed
// voxels and returns the written path.
func SaveChunkPreview(chunk *Chunk, key Key, outputDir string) (string, error) {
	if chunk == nil {
		return "", fmt.Errorf("chunk is nil")
	}
	size := chunk.Size()
	if !size.Valid() {
		return "", fmt.Errorf("invalid chunk size: %+v", size)
	}
	if err := ensurePreviewDir(outputDir); err != nil {
		return "", err
	}

	width := (size.X+size.Z)*previewTileWidth/2 + previewTileWidth
	height := (size.X+size.Z)*previewTileHeight/2 + size.Y*previewBlockHeight + previewTileHeight
	img := image.NewNRGBA(image.Rect(0, 0, width, height))

	background := color.NRGBA{R: 10, G: 10, B: 18, A: 255}
	draw.Draw(img, img.Bounds(), &image.Uniform{background}, image.Point{}, draw.Src)

	voxels := collectPreviewVoxels(chunk)
	sort.Slice(voxels, func(i, j int) bool {
		vi, vj := voxels[i], voxels[j]
		if vi.screenY != vj.screenY {
			return vi.screenY < vj.screenY
		}
		if vi.screenX != vj.screenX {
			return vi.screenX < vj.screenX
		}
		return vi.y < vj.y
	})

	offsetX := size.Z*previewTileWidth/2 + previewTileWidth/2
	offsetY := size.Y * previewBlockHeight
	for _, info := range voxels {
		renderVoxelPreview(img, offsetX+info.screenX, offsetY+info.screenY, info.voxel)
	}

	path := PreviewPath(outputDir, key)
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create preview: %w", err)
	}
	defer file.Close()
	if err := png.Encode(file, img); err != nil {
		return "", fmt.Errorf("encode preview: %w", err)
	}
	return path, nil
}

// collectPreviewVoxels keeps voxels with at least one open side toward the
// viewer; fully enclosed voxels are never visible in the render.
func collectPreviewVoxels(chunk *Chunk) []voxelPreview {
	out := make([]voxelPreview, 0, chunk.size.X*chunk.size.Z*2)
	chunk.ForEach(func(x, y, z int, v Voxel) bool {
		if !chunk.At(x, y+1, z).IsAir() && !chunk.At(x+1, y, z).IsAir() && !chunk.At(x, y, z+1).IsAir() {
			return true
		}
		out = append(out, voxelPreview{
			x:       x,
			y:       y,
			z:       z,
			voxel:   v,
			screenX: (x - z) * previewTileWidth / 2,
			screenY: (x+z)*previewTileHeight/2 - y*previewBlockHeight,
		})
		return true
	})
	return out
}

func renderVoxelPreview(img *image.NRGBA, baseX, baseY int, v Voxel) {
	base := color.NRGBA{R: v.Color.R, G: v.Color.G, B: v.Color.B, A: 255}

	topColor := applyLighting(base, previewAmbientLight+0.8)
	leftColor := applyLighting(base, previewAmbientLight+0.5)
	rightColor := applyLighting(base, previewAmbientLight+0.35)

	top := []image.Point{
		{X: baseX, Y: baseY - previewBlockHeight},
		{X: baseX + previewTileWidth/2, Y: baseY - previewBlockHeight + previewTileHeight/2},
		{X: baseX, Y: baseY - previewBlockHeight + previewTileHeight},
		{X: baseX - previewTileWidth/2, Y: baseY - previewBlockHeight + previewTileHeight/2},
	}
	if v.Type == blocks.Feature {
		// Features are drawn as a flat tuft on the cell floor.
		fillPolygon(img, shift(top, previewBlockHeight), topColor)
		return
	}
	left := []image.Point{
		{X: baseX - previewTileWidth/2, Y: baseY - previewBlockHeight + previewTileHeight/2},
		{X: baseX, Y: baseY - previewBlockHeight + previewTileHeight},
		{X: baseX, Y: baseY + previewTileHeight},
		{X: baseX - previewTileWidth/2, Y: baseY + previewTileHeight/2},
	}
	right := []image.Point{
		{X: baseX + previewTileWidth/2, Y: baseY - previewBlockHeight + previewTileHeight/2},
		{X: baseX, Y: baseY - previewBlockHeight + previewTileHeight},
		{X: baseX, Y: baseY + previewTileHeight},
		{X: baseX + previewTileWidth/2, Y: baseY + previewTileHeight/2},
	}

	fillPolygon(img, left, leftColor)
	fillPolygon(img, right, rightColor)
	fillPolygon(img, top, topColor)
}

func shift(pts []image.Point, dy int) []image.Point {
	out := make([]image.Point, len(pts))
	for i, p := range pts {
		out[i] = image.Point{X: p.X, Y: p.Y + dy}
	}
	return out
}

func applyLighting(base color.NRGBA, factor float64) color.NRGBA {
	factor = math.Max(0, math.Min(factor, 1))
	r := uint8(math.Round(float64(base.R) * factor))
	g := uint8(math.Round(float64(base.G) * factor))
	b := uint8(math.Round(float64(base.B) * factor))
	return color.NRGBA{R: r, G: g, B: b, A: 255}
}

func fillPolygon(img *image.NRGBA, pts []image.Point, col color.NRGBA) {
	if len(pts) < 3 {
		return
	}
	minY := pts[0].Y
	maxY := pts[0].Y
	for _, p := range pts[1:] {
		minY = min(minY, p.Y)
		maxY = max(maxY, p.Y)
	}
	bounds := img.Bounds()
	minY = max(minY, bounds.Min.Y)
	maxY = min(maxY, bounds.Max.Y-1)

	xs := make([]int, 0, len(pts))
	for y := minY; y <= maxY; y++ {
		xs = xs[:0]
		for i := range pts {
			j := (i + 1) % len(pts)
			x1, y1 := pts[i].X, pts[i].Y
			x2, y2 := pts[j].X, pts[j].Y
			if y1 == y2 {
				continue
			}
			if y < min(y1, y2) || y >= max(y1, y2) {
				continue
			}
			xs = append(xs, x1+(y-y1)*(x2-x1)/(y2-y1))
		}
		if len(xs) < 2 {
			continue
		}
		sort.Ints(xs)
		for i := 0; i+1 < len(xs); i += 2 {
			xStart, xEnd := xs[i], xs[i+1]
			if xEnd < bounds.Min.X || xStart >= bounds.Max.X {
				continue
			}
			xStart = max(xStart, bounds.Min.X)
			xEnd = min(xEnd, bounds.Max.X-1)
			for x := xStart; x <= xEnd; x++ {
				idx := (y-bounds.Min.Y)*img.Stride + (x-bounds.Min.X)*4
				img.Pix[idx] = col.R
				img.Pix[idx+1] = col.G
				img.Pix[idx+2] = col.B
				img.Pix[idx+3] = col.A
			}
		}
	}
}

func ensurePreviewDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("output directory is empty")
	}
	return os.MkdirAll(dir, 0o755)
}
