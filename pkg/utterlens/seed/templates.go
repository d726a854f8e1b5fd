package seed

import (
	"fmt"
	"math/rand"

	"github.com/cognicore/utterlens/pkg/utterlens/store"
)

var cycleTopics = []string{
	"生理痛", "PMS", "生理不順", "睡眠", "ストレス", "肌荒れ", "経血量",
	"頭痛", "ロキソニン", "低用量ピル", "漢方", "更年期", "子宮筋腫",
}

var fertilityTopics = []string{
	"妊活", "排卵", "基礎体温", "排卵検査薬", "葉酸", "不妊治療", "体外受精",
	"生理不順", "ストレス", "睡眠",
}

var shortLines = []string{
	"%sについて教えてください",
	"%sがつらいです",
	"最近%sが気になります",
	"%sって病院に行くべき？",
	"%sの対策を知りたい",
	"%sと生理周期って関係ありますか",
}

// Long enough to read as detailed questions.
var detailedLines = []string{
	"ここ数ヶ月%sがひどくなっていて、仕事中も集中できない日が増えました。市販薬を飲んでもあまり変わらず、このまま様子を見ていて大丈夫なのか不安です。婦人科に行くべきタイミングはいつですか？",
	"%sのことで相談です。周りに話せる人がいなくて、毎月この時期になると気持ちが落ち込みます。同じような悩みを持つ人はどうやって乗り切っているのか知りたいです。心配しすぎでしょうか？",
}

// Long enough to read as self-solving reports.
var selfSolvingLines = []string{
	"%s対策として、寝る前のストレッチと湯船につかる習慣を二週間ほど試してみました。少しずつですが改善してきた気がするので、このまま続けてみます。",
	"%sが気になっていたので、先月から食事を見直して鉄分の多いメニューを実践しています。サプリも一緒に飲んでいますが、体調が安定してきました。",
}

var assistantLines = []string{
	"%sについて教えてくれてありがとうございます。生活リズムを整えることが助けになる場合があります。症状が続くときは婦人科への相談も考えてみてください。",
	"%sは周期によって感じ方が変わることがあります。記録をつけておくと、受診のときに役立ちますよ。",
	"%sでお困りなんですね。無理をせず、体を温めてゆっくり休む時間をとってみてください。",
}

func pickTopic(rng *rand.Rand, mode store.Mode) string {
	topics := cycleTopics
	if mode == store.ModeFertility && rng.Intn(3) > 0 {
		topics = fertilityTopics
	}
	return topics[rng.Intn(len(topics))]
}

func userLine(rng *rand.Rand, topic string) string {
	var lines []string
	switch r := rng.Intn(10); {
	case r < 2:
		lines = detailedLines
	case r < 4:
		lines = selfSolvingLines
	default:
		lines = shortLines
	}
	return fmt.Sprintf(lines[rng.Intn(len(lines))], topic)
}

func assistantLine(rng *rand.Rand, topic string) string {
	return fmt.Sprintf(assistantLines[rng.Intn(len(assistantLines))], topic)
}
