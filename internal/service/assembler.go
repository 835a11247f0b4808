package service

import (
	"relayhub/internal/constants"
	"relayhub/internal/models"
)

type albumClass int

const (
	classNone albumClass = iota
	classVisual
	classFile
)

// classOf groups media kinds that Telegram allows inside one media group:
// photos and videos mix freely, documents only travel with documents.
func classOf(kind models.MediaKind) albumClass {
	switch kind {
	case models.MediaKindPhoto, models.MediaKindVideo:
		return classVisual
	case models.MediaKindDocument:
		return classFile
	}
	return classNone
}

// BuildAlbums splits one sender's ordered pending items into sendable
// albums. Original order is preserved; a new album starts on a class change,
// on a source media-group boundary, or when the size limit is reached.
// Items of non-album kinds are skipped. The album caption is the first
// non-empty caption among its members.
func BuildAlbums(items []models.MediaItem) []models.Album {
	var albums []models.Album
	var current []models.MediaItem

	flush := func() {
		if len(current) == 0 {
			return
		}
		album := models.Album{Items: current}
		for _, item := range current {
			if item.Caption != "" {
				album.Caption = item.Caption
				break
			}
		}
		albums = append(albums, album)
		current = nil
	}

	for _, item := range items {
		if classOf(item.Kind) == classNone {
			continue
		}
		if len(current) > 0 {
			prev := current[len(current)-1]
			if classOf(prev.Kind) != classOf(item.Kind) ||
				prev.GroupKey != item.GroupKey ||
				len(current) >= constants.MaxAlbumSize {
				flush()
			}
		}
		current = append(current, item)
	}
	flush()

	return albums
}
