package sentiment

// Polarity of market slang in English and Cantonese. Han terms are matched
// longest-first, so "大跌" wins over "跌".
var defaultLexicon = map[string]float64{
	// English
	"bull": 1, "bullish": 1, "buy": 0.8, "long": 0.5, "gain": 0.7, "gains": 0.7,
	"up": 0.4, "rally": 0.9, "surge": 1, "soar": 1, "beat": 0.7, "strong": 0.6,
	"profit": 0.7, "upgrade": 0.8, "rebound": 0.7, "outperform": 0.8, "moon": 1,
	"bear": -1, "bearish": -1, "sell": -0.8, "short": -0.5, "loss": -0.7, "losses": -0.7,
	"down": -0.4, "crash": -1, "plunge": -1, "miss": -0.7, "weak": -0.6,
	"downgrade": -0.8, "dump": -0.9, "drop": -0.6, "fall": -0.6, "underperform": -0.8,

	// Cantonese
	"升": 0.6, "大升": 1, "好勁": 0.8, "利好": 0.9, "買入": 0.8, "抄底": 0.6,
	"反彈": 0.7, "牛市": 1, "賺": 0.7, "發達": 1, "睇好": 0.8, "上車": 0.6, "食糊": 0.9,
	"跌": -0.6, "大跌": -1, "插水": -1, "利淡": -0.9, "沽": -0.7, "熊市": -1,
	"蝕": -0.8, "輸": -0.6, "爆煲": -1, "睇淡": -0.8, "割禾": -0.9, "接火棒": -1, "散水": -0.6,
}

var defaultNegators = map[string]bool{
	"not": true, "no": true, "never": true, "dont": true, "isnt": true, "wont": true,
	"唔": true, "冇": true, "無": true, "不": true, "未": true,
}
