package registry

import "github.com/Alexander-D-Karpov/campanula/pkg/types"

const staticHost = "https://static-r2.caelum.moe/"

var DefaultBanner = types.Banner{
	Name:        "待夕归明",
	Description: "我和我沉寂的灵魂，伴有十一月的初雪...",
}

var DefaultSiteMeta = types.SiteMeta{
	Title:       "Campanulas",
	OgTitle:     "Some melodies just for venting",
	Description: "The piano keys dance with the petals.",
	Site:        "https://gallery.caelum.moe",
}

var albumRandomPlays = types.Album{
	Name:        "一些随弹",
	Cover:       staticHost + "%E4%B8%80%E4%BA%9B%E9%9A%8F%E5%BC%B9.jpg",
	Description: "没事干的时候，拿起琴写下一些东西......",
}

// PublishedWorks returns the built-in catalog in display order.
func PublishedWorks() []types.WorkItem {
	return []types.WorkItem{
		{
			Title: "夏の夕焼け",
			Album: types.Album{
				Name:        "夏の夕焼け",
				Cover:       staticHost + "%E5%A4%8F%E3%81%AE%E5%A4%95%E7%84%BC%E3%81%91.jpg",
				Description: "pid: 72006268",
			},
			Source:       staticHost + "%E5%BE%85%E5%A4%95%E5%BD%92%E6%98%8E%20-%20%E5%A4%8F%E3%81%AE%E5%A4%95%E7%84%BC%E3%81%91.mp3",
			TotalSeconds: 259,
		},
		{
			Title:        "I'll send some notes for your poems.",
			Album:        albumRandomPlays,
			Source:       staticHost + "%E5%BE%85%E5%A4%95%E5%BD%92%E6%98%8E%20-%20I'll%20send%20some%20notes%20for%20your%20poems.mp3",
			TotalSeconds: 184,
		},
		{
			Title:        "memories are still echoing.",
			Album:        albumRandomPlays,
			Source:       staticHost + "%E5%BE%85%E5%A4%95%E5%BD%92%E6%98%8E%20-%20memories%20are%20still%20echoing.mp3",
			TotalSeconds: 334,
		},
		{
			Title: "夕落",
			Album: types.Album{
				Name:        "dusk will befall with you.",
				Cover:       staticHost + "dusk%20will%20befall%20with%20you..jpg",
				Description: "专辑封面：https://www.pixiv.net/artworks/93490869",
			},
			Source:       staticHost + "%E5%BE%85%E5%A4%95%E5%BD%92%E6%98%8E%20-%20%E5%A4%95%E8%90%BD.mp3",
			TotalSeconds: 326,
		},
		{
			Title: "暮秋的遐思",
			Album: types.Album{
				Name:        "last autumn.",
				Cover:       staticHost + "last%20autumn..jpg",
				Description: "封面：https://www.pixiv.net/artworks/94263720",
			},
			Source:       staticHost + "%E5%BE%85%E5%A4%95%E5%BD%92%E6%98%8E%20-%20%E6%9A%AE%E7%A7%8B%E7%9A%84%E9%81%90%E6%80%9D.mp3",
			TotalSeconds: 241,
		},
		{
			Title: "Sugar Life",
			Album: types.Album{
				Name:  "Sugar Life",
				Cover: staticHost + "Suger%20Life.jpg",
				Description: "看完 Happy Sugar Life 之后，很自然脑海中浮现出的旋律。\n\n" +
					"盐酱和砂糖之间变态一般的羁绊，我十分的向往。与其说这是病娇之间的共鸣，我更愿意相信是孤独之人相互吸引的温柔的故事。" +
					"人们是无法忍受孤独的，再坚强的人也会被长久孤独彻底腐蚀。因此我们渴望人与人之间的羁绊，渴望建立起所谓的“永恒的情谊”。\n\n" +
					"两个被自己所爱之人抛弃的孤独之人、无法正确理解感情为何物的人相互救赎——这是献给世界上孤独之人的一段物语。\n\n" +
					"最后两个人在高楼上殉情，盐酱成为了下一个砂糖。\n\n" +
					"“砂糖酱，今晚也一起看星星吧。这装满幸福的玻璃瓶，我会永远守护到底的哦。”",
			},
			Source:       staticHost + "%E5%BE%85%E5%A4%95%E5%BD%92%E6%98%8E%20-%20Sugar%20life.mp3",
			TotalSeconds: 170,
		},
		{
			Title: "落雨随弹",
			Album: types.Album{
				Name:        "落雨随弹",
				Cover:       staticHost + "%E8%90%BD%E9%9B%A8%E9%9A%8F%E5%BC%B9.jpg",
				Description: "封面pid：66385385",
			},
			Source:       staticHost + "%E5%BE%85%E5%A4%95%E5%BD%92%E6%98%8E%20-%20%E8%90%BD%E9%9B%A8%E9%9A%8F%E5%BC%B9.mp3",
			TotalSeconds: 171,
		},
		{
			Title: "Grey Flowers",
			Album: types.Album{
				Name:        "黒鳥璃水",
				Cover:       staticHost + "%E9%BB%92%E9%B3%A5%E7%92%83%E6%B0%B4.jpg",
				Description: "我想去一遍西伯利亚的最东边。",
			},
			Source:       staticHost + "%E5%BE%85%E5%A4%95%E5%BD%92%E6%98%8E%20-%20Grey%20Flowers.mp3",
			TotalSeconds: 277,
		},
	}
}
