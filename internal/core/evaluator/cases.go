package evaluator

// DefaultCases is the fixed evaluation set: matematik and fen bilimleri
// questions across grades 5-8, grouped into categories so a regression in one
// area is visible in the per-category aggregates.
func DefaultCases() []Case {
	return []Case{
		{
			ID: "mat5_kesir_toplama", Category: "hesaplama", Grade: 5, Subject: "matematik",
			Question:         "1/4 ile 2/4 kesirlerini toplar mısın? Sonucu açıklayarak göster.",
			ExpectedKeywords: []string{"3/4", "payda", "pay"},
		},
		{
			ID: "mat5_dogal_sayilar", Category: "kavram", Grade: 5, Subject: "matematik",
			Question:         "Basamak değeri ne demektir? 472 sayısındaki 7'nin basamak değeri kaçtır?",
			ExpectedKeywords: []string{"70", "onlar", "basamak"},
		},
		{
			ID: "mat6_oran", Category: "kavram", Grade: 6, Subject: "matematik",
			Question:         "Oran nedir? Günlük hayattan bir örnekle açıklar mısın?",
			ExpectedKeywords: []string{"oran", "karşılaştır", "örnek"},
		},
		{
			ID: "mat6_carpma", Category: "hesaplama", Grade: 6, Subject: "matematik",
			Question:         "25 ile 14'ü çarparsak sonuç kaç olur? İşlemi adım adım göster.",
			ExpectedKeywords: []string{"350", "çarp"},
		},
		{
			ID: "mat7_yuzde", Category: "problem", Grade: 7, Subject: "matematik",
			Question:         "200 liralık bir ürüne yüzde 15 indirim yapılırsa yeni fiyat kaç lira olur?",
			ExpectedKeywords: []string{"170", "30", "indirim"},
		},
		{
			ID: "mat8_uslu", Category: "hesaplama", Grade: 8, Subject: "matematik",
			Question:         "2 üzeri 5 kaçtır? Üslü ifadelerin ne işe yaradığını kısaca açıkla.",
			ExpectedKeywords: []string{"32", "üs", "çarp"},
		},
		{
			ID: "fen5_madde_hal", Category: "kavram", Grade: 5, Subject: "fen_bilimleri",
			Question:         "Maddenin halleri nelerdir? Her birine bir örnek ver.",
			ExpectedKeywords: []string{"katı", "sıvı", "gaz"},
		},
		{
			ID: "fen6_dolasim", Category: "kavram", Grade: 6, Subject: "fen_bilimleri",
			Question:         "Kanı vücudumuzda dolaştıran organ hangisidir ve görevi nedir?",
			ExpectedKeywords: []string{"kalp", "kan", "damar"},
		},
		{
			ID: "fen7_yogunluk", Category: "problem", Grade: 7, Subject: "fen_bilimleri",
			Question:         "Kütlesi 40 gram, hacmi 20 santimetreküp olan cismin yoğunluğu kaçtır?",
			ExpectedKeywords: []string{"2", "kütle", "hacim"},
		},
		{
			ID: "fen8_basinc", Category: "kavram", Grade: 8, Subject: "fen_bilimleri",
			Question:         "Katı basıncı hangi etkenlere bağlıdır? Kar ayakkabısı örneğiyle açıkla.",
			ExpectedKeywords: []string{"yüzey", "ağırlık", "basınç"},
		},
		{
			ID: "mat7_cebir", Category: "problem", Grade: 7, Subject: "matematik",
			Question:         "x + 7 = 12 denkleminde x kaçtır? Nasıl bulduğunu anlat.",
			ExpectedKeywords: []string{"5", "denklem"},
		},
		{
			ID: "fen5_gunes", Category: "kavram", Grade: 5, Subject: "fen_bilimleri",
			Question:         "Güneş, Dünya ve Ay'ın hareketlerini kısaca anlatır mısın?",
			ExpectedKeywords: []string{"dönme", "dolanma", "güneş"},
		},
	}
}
