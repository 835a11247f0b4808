package service

import (
	"fmt"
	"testing"

	"relayhub/internal/constants"
	"relayhub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func item(id int, kind models.MediaKind) models.MediaItem {
	return models.MediaItem{
		SourceMessageID: id,
		SenderID:        1,
		Kind:            kind,
		FileID:          fmt.Sprintf("file-%d", id),
	}
}

func TestBuildAlbumsPreservesOrder(t *testing.T) {
	items := []models.MediaItem{
		item(1, models.MediaKindPhoto),
		item(2, models.MediaKindPhoto),
		item(3, models.MediaKindVideo),
	}

	albums := BuildAlbums(items)

	require.Len(t, albums, 1)
	require.Len(t, albums[0].Items, 3)
	for i, it := range albums[0].Items {
		assert.Equal(t, i+1, it.SourceMessageID)
	}
}

func TestBuildAlbumsSplitsOnClassChange(t *testing.T) {
	items := []models.MediaItem{
		item(1, models.MediaKindPhoto),
		item(2, models.MediaKindDocument),
		item(3, models.MediaKindPhoto),
	}

	albums := BuildAlbums(items)

	require.Len(t, albums, 3)
	assert.Equal(t, models.MediaKindPhoto, albums[0].Items[0].Kind)
	assert.Equal(t, models.MediaKindDocument, albums[1].Items[0].Kind)
	assert.Equal(t, models.MediaKindPhoto, albums[2].Items[0].Kind)
}

func TestBuildAlbumsMixesPhotoAndVideo(t *testing.T) {
	items := []models.MediaItem{
		item(1, models.MediaKindPhoto),
		item(2, models.MediaKindVideo),
		item(3, models.MediaKindPhoto),
	}

	albums := BuildAlbums(items)

	require.Len(t, albums, 1)
	assert.Len(t, albums[0].Items, 3)
}

func TestBuildAlbumsEnforcesMaxSize(t *testing.T) {
	var items []models.MediaItem
	for i := 1; i <= 23; i++ {
		items = append(items, item(i, models.MediaKindPhoto))
	}

	albums := BuildAlbums(items)

	require.Len(t, albums, 3)
	assert.Len(t, albums[0].Items, constants.MaxAlbumSize)
	assert.Len(t, albums[1].Items, constants.MaxAlbumSize)
	assert.Len(t, albums[2].Items, 3)
	assert.Equal(t, 11, albums[1].Items[0].SourceMessageID)
	assert.Equal(t, 23, albums[2].Items[2].SourceMessageID)
}

func TestBuildAlbumsSplitsOnGroupKeyChange(t *testing.T) {
	a := item(1, models.MediaKindPhoto)
	a.GroupKey = "g1"
	b := item(2, models.MediaKindPhoto)
	b.GroupKey = "g1"
	c := item(3, models.MediaKindPhoto)
	c.GroupKey = "g2"

	albums := BuildAlbums([]models.MediaItem{a, b, c})

	require.Len(t, albums, 2)
	assert.Len(t, albums[0].Items, 2)
	assert.Len(t, albums[1].Items, 1)
}

func TestBuildAlbumsSkipsNonAlbumKinds(t *testing.T) {
	items := []models.MediaItem{
		item(1, models.MediaKindText),
		item(2, models.MediaKindOther),
	}

	albums := BuildAlbums(items)

	assert.Empty(t, albums)
}

func TestBuildAlbumsCaptionFromFirstCaptionedItem(t *testing.T) {
	a := item(1, models.MediaKindPhoto)
	b := item(2, models.MediaKindPhoto)
	b.Caption = "holiday pics"
	c := item(3, models.MediaKindPhoto)
	c.Caption = "ignored"

	albums := BuildAlbums([]models.MediaItem{a, b, c})

	require.Len(t, albums, 1)
	assert.Equal(t, "holiday pics", albums[0].Caption)
}

func TestBuildAlbumsEmptyInput(t *testing.T) {
	assert.Empty(t, BuildAlbums(nil))
}
