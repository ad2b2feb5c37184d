package source

import "github.com/grow-with-growth/growyourneed/internal/content"

// DefaultSpecs returns the stock source configuration for every category.
func DefaultSpecs() map[content.Category][]Spec {
	return map[content.Category][]Spec{
		content.CategoryMovies: {
			{Name: "VidSrc", Kind: KindEmbed, URL: "https://vidsrc.to/embed/movie/{imdb}"},
			{Name: "SuperEmbed", Kind: KindEmbed, URL: "https://multiembed.mov/directstream.php?video_id={imdb}&tmdb=1"},
			{Name: "EmbedSu", Kind: KindEmbed, URL: "https://embed.su/embed/movie/{imdb}"},
			{Name: "SmashyStream", Kind: KindEmbed, URL: "https://player.smashy.stream/movie/{imdb}"},
		},
		content.CategoryTV: {
			{Name: "VidSrc TV", Kind: KindEmbed, URL: "https://vidsrc.to/embed/tv/{imdb}/{season}/{episode}"},
			{Name: "SuperEmbed TV", Kind: KindEmbed, URL: "https://multiembed.mov/directstream.php?video_id={imdb}&tmdb=1&s={season}&e={episode}"},
			{Name: "EmbedSu TV", Kind: KindEmbed, URL: "https://embed.su/embed/tv/{imdb}/{season}/{episode}"},
			{Name: "EZTV", Kind: KindEZTV, URL: defaultEZTVBase},
		},
		content.CategoryBooks: {
			{Name: "LibGen", Kind: KindDownload, URL: "https://libgen.is/book/index.php?md5={md5}", Format: "PDF"},
			{Name: "Archive.org", Kind: KindDownload, URL: "https://archive.org/download/{query_underscore}/{query_underscore}.pdf", Format: "PDF"},
			{Name: "Gutenberg", Kind: KindDownload, URL: "https://gutenberg.org/files/{gutenberg}/{query_underscore}.txt", Format: "TXT"},
			{Name: "Z-Library", Kind: KindDownload, URL: "https://b-ok.cc/book/{book_id}/{query_underscore}.epub", Format: "EPUB"},
		},
		content.CategoryLiveTV: {
			{Name: "News Channels", Kind: KindChannels, Channels: DefaultChannels()},
			{Name: "IPTV-org US", Kind: KindM3U, URL: "https://iptv-org.github.io/iptv/countries/us.m3u"},
		},
	}
}

// DefaultChannels is the stock list of free news channels.
func DefaultChannels() []Channel {
	return []Channel{
		{Name: "CNN International", URL: "https://cnn-cnninternational-1-gb.samsung.wurl.com/manifest/playlist.m3u8"},
		{Name: "BBC News", URL: "https://vs-hls-push-ww-live.akamaized.net/x=4/i=urn:bbc:pips:service:bbc_news24/t=3840/v=pv14/b=5070016/main.m3u8"},
		{Name: "NBC News", URL: "https://dai2.xumo.com/amagi_hls_data_xumo1212A-redboxnbcnews/CDN/playlist.m3u8"},
		{Name: "Fox News", URL: "https://fox-foxnewsnow-samsungus.amagi.tv/playlist.m3u8"},
		{Name: "Sky News", URL: "https://skynews2-plutolive-vo.akamaized.net/cdnAkamaiLive_201/playlist.m3u8"},
		{Name: "Al Jazeera", URL: "https://live-hls-web-aje.getaj.net/AJE/01.m3u8"},
		{Name: "France 24", URL: "https://static.france24.com/live/F24_EN_LO_HLS/live_web.m3u8"},
		{Name: "RT News", URL: "https://rt-glb.rttv.com/live/rtnews/playlist.m3u8"},
	}
}
