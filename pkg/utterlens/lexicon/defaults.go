package lexicon

var defaultRelated = []Group{
	{Key: "生理痛", Terms: []string{"月経困難症", "痛み", "鎮痛", "ロキソニン", "イブプロフェン", "下腹部痛"}},
	{Key: "PMS", Terms: []string{"月経前症候群", "イライラ", "気分", "浮腫", "むくみ", "頭痛"}},
	{Key: "生理不順", Terms: []string{"月経不順", "周期", "不規則", "無月経", "遅れ"}},
	{Key: "睡眠", Terms: []string{"不眠", "眠れない", "睡眠不足", "寝付き", "ほてり"}},
	{Key: "ストレス", Terms: []string{"緊張", "プレッシャー", "ストレス解消", "自律神経"}},
	{Key: "肌荒れ", Terms: []string{"ニキビ", "乾燥", "吹き出物", "皮脂"}},
	{Key: "妊活", Terms: []string{"不妊", "妊娠", "体外受精", "人工授精", "不妊治療"}},
	{Key: "排卵", Terms: []string{"排卵日", "排卵検査薬", "排卵痛", "LH"}},
	{Key: "基礎体温", Terms: []string{"体温計", "高温期", "低温期", "グラフ"}},
	{Key: "経血量", Terms: []string{"月経量", "多い", "少ない", "過多月経"}},
	{Key: "子宮筋腫", Terms: []string{"筋腫", "良性", "腫瘍"}},
	{Key: "子宮内膜症", Terms: []string{"内膜症", "チョコレート嚢腫"}},
	{Key: "漢方", Terms: []string{"当帰芍薬散", "桂枝茯苓丸", "加味逍遙散"}},
	{Key: "更年期", Terms: []string{"プレ更年期", "ホルモン", "のぼせ", "ホットフラッシュ"}},
}

var defaultCoOccurrence = []string{
	"生理痛", "PMS", "生理不順", "睡眠", "ストレス", "肌荒れ",
	"ロキソニン", "イブプロフェン", "低用量ピル", "子宮筋腫", "子宮内膜症",
	"妊活", "排卵", "基礎体温", "排卵検査薬", "葉酸", "鉄分", "不妊治療",
	"体外受精", "経血量", "月経困難症", "月経前症候群", "ホルモン",
	"サプリ", "ヨガ", "漢方", "頭痛", "更年期", "鎮痛剤", "婦人科",
	"運動", "ピル", "不妊", "経血", "排卵痛", "低用量",
}

var defaultTopics = []string{
	"生理痛", "PMS", "月経前症候群", "生理不順", "月経不順",
	"睡眠不足", "不眠", "ストレス", "肌荒れ", "ニキビ",
	"妊活", "不妊", "排卵", "基礎体温", "排卵検査薬",
	"経血量", "子宮筋腫", "子宮内膜症", "漢方", "低用量ピル",
	"更年期", "ホルモン", "サプリ", "ヨガ", "頭痛",
	"鎮痛剤", "ロキソニン", "セルフケア", "婦人科", "不妊治療",
}

var defaultHealth = []string{
	"生理痛", "PMS", "生理不順", "睡眠", "ストレス", "肌荒れ",
	"ロキソニン", "イブプロフェン", "低用量ピル", "子宮筋腫", "子宮内膜症",
	"妊活", "排卵", "基礎体温", "排卵検査薬", "葉酸", "鉄分", "不妊治療",
	"体外受精", "経血量", "月経困難症", "月経前症候群", "ホルモン",
	"サプリ", "ヨガ", "漢方", "頭痛", "更年期", "鎮痛剤", "婦人科",
	"運動", "ピル", "不妊", "排卵痛",
}
