package wire

// FMask and AMask select which fields the FILE command returns, encoded
// as big-endian bit flags across 5 and 4 bytes respectively. Constants
// follow the iota/shift-with-blank-identifier idiom used by the pack's
// darkfeline-anidb-go fragment; reserved bits are named with "_" so the
// byte layout stays visible even though nothing references them.
type FMask uint64

const (
	_ FMask = 1 << (39 - iota)
	FMaskAID
	FMaskEID
	FMaskGID
	FMaskMyListID
	FMaskOtherEpisodes
	FMaskIsDeprecated
	FMaskState
	FMaskSize
	FMaskED2k
	FMaskMD5
	FMaskSHA1
	FMaskCRC32
	_
	_
	_
	FMaskQuality
	FMaskSource
	FMaskAudioCodec
	FMaskAudioBitrate
	FMaskVideoCodec
	FMaskVideoBitrate
	FMaskVideoResolution
	FMaskFileType
	FMaskDubLanguage
	FMaskSubLanguage
	FMaskLengthMinutes
	FMaskDescription
	FMaskAiredDate
	_
	_
	FMaskAniDBFileName
	FMaskMyListState
	FMaskMyListFileState
	FMaskMyListViewed
	FMaskMyListViewDate
	FMaskMyListStorage
	FMaskMyListSource
	FMaskMyListOther
	_
)

// AMask selects anime-level fields on a combined FILE (f+a) query.
type AMask uint32

const (
	AMaskAnimeTotalEpisodes AMask = 1 << (31 - iota)
	AMaskHighestEpisode
	AMaskYear
	AMaskType
	AMaskRelatedAnimeList
	AMaskRelatedAnimeType
	_
	_
	AMaskRomajiName
	AMaskKanjiName
	AMaskEnglishName
	AMaskOtherName
	AMaskShortNames
	AMaskSynonyms
	_
	_
	AMaskEpisodeNumber
	AMaskEpisodeName
	AMaskEpisodeRomajiName
	AMaskEpisodeKanjiName
	AMaskEpisodeRating
	AMaskEpisodeVoteCount
	_
	_
	AMaskGroupName
	AMaskGroupShortName
	_
	_
	_
	_
	_
	_
)
