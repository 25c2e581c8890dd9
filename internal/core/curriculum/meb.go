package curriculum

import "sync"

// Subjects covered by the tutor.
const (
	SubjectMatematik = "matematik"
	SubjectFen       = "fen_bilimleri"
)

var (
	loadOnce   sync.Once
	mebGraph   *Graph
	mebLoadErr error
)

// Load returns the MEB curriculum graph. The table below is authored order;
// construction fails permanently if it ever stops being a DAG.
func Load() (*Graph, error) {
	loadOnce.Do(func() {
		mebGraph, mebLoadErr = NewGraph(mebNodes)
	})
	return mebGraph, mebLoadErr
}

var mebNodes = []Node{
	// 5. sınıf matematik
	{
		ID: "mat5_dogal_sayilar", Grade: 5, Subject: SubjectMatematik,
		LearningArea: "Sayılar ve İşlemler", Unit: "Doğal Sayılar", Topic: "Doğal Sayılar",
		Objectives: []string{
			"En çok dokuz basamaklı doğal sayıları okur ve yazar",
			"Doğal sayılarla dört işlem yapar",
		},
		EstimatedHours: 12,
	},
	{
		ID: "mat5_kesirler", Grade: 5, Subject: SubjectMatematik,
		LearningArea: "Sayılar ve İşlemler", Unit: "Kesirler", Topic: "Kesirler",
		Objectives: []string{
			"Birim kesirleri sayı doğrusunda gösterir",
			"Kesirleri karşılaştırır ve sıralar",
		},
		EstimatedHours: 14,
		Prerequisites:  []string{"mat5_dogal_sayilar"},
	},
	{
		ID: "mat5_ondalik", Grade: 5, Subject: SubjectMatematik,
		LearningArea: "Sayılar ve İşlemler", Unit: "Ondalık Gösterim", Topic: "Ondalık Gösterim",
		Objectives: []string{
			"Kesirlerin ondalık gösterimini yazar",
			"Ondalık gösterimleri karşılaştırır",
		},
		EstimatedHours: 10,
		Prerequisites:  []string{"mat5_kesirler"},
	},
	{
		ID: "mat5_yuzdeler", Grade: 5, Subject: SubjectMatematik,
		LearningArea: "Sayılar ve İşlemler", Unit: "Yüzdeler", Topic: "Yüzdeler",
		Objectives: []string{
			"Yüzde sembolünü kullanır",
			"Bir çokluğun belirtilen yüzdesini bulur",
		},
		EstimatedHours: 8,
		Prerequisites:  []string{"mat5_ondalik"},
	},
	{
		ID: "mat5_geometri", Grade: 5, Subject: SubjectMatematik,
		LearningArea: "Geometri ve Ölçme", Unit: "Temel Geometrik Kavramlar", Topic: "Temel Geometrik Kavramlar",
		Objectives: []string{
			"Doğru, doğru parçası ve ışını tanır",
			"Açıları ölçer ve çizer",
		},
		EstimatedHours: 12,
	},
	{
		ID: "mat5_alan_cevre", Grade: 5, Subject: SubjectMatematik,
		LearningArea: "Geometri ve Ölçme", Unit: "Alan ve Çevre", Topic: "Alan ve Çevre",
		Objectives: []string{
			"Dikdörtgenin çevresini ve alanını hesaplar",
		},
		EstimatedHours: 10,
		Prerequisites:  []string{"mat5_geometri"},
	},
	// 5. sınıf fen bilimleri
	{
		ID: "fen5_gunes_dunya_ay", Grade: 5, Subject: SubjectFen,
		LearningArea: "Dünya ve Evren", Unit: "Güneş, Dünya ve Ay", Topic: "Güneş, Dünya ve Ay",
		Objectives: []string{
			"Güneş'in özelliklerini açıklar",
			"Ay'ın evrelerini sıralar",
		},
		EstimatedHours: 10,
	},
	{
		ID: "fen5_canlilar", Grade: 5, Subject: SubjectFen,
		LearningArea: "Canlılar ve Yaşam", Unit: "Canlılar Dünyası", Topic: "Canlılar Dünyası",
		Objectives: []string{
			"Canlıları benzerlik ve farklılıklarına göre sınıflandırır",
		},
		EstimatedHours: 8,
	},
	{
		ID: "fen5_kuvvet", Grade: 5, Subject: SubjectFen,
		LearningArea: "Fiziksel Olaylar", Unit: "Kuvvetin Ölçülmesi", Topic: "Kuvvetin Ölçülmesi ve Sürtünme",
		Objectives: []string{
			"Kuvveti dinamometre ile ölçer",
			"Sürtünme kuvvetinin etkilerini gözlemler",
		},
		EstimatedHours: 10,
	},
	// 6. sınıf matematik
	{
		ID: "mat6_dogal_sayilar", Grade: 6, Subject: SubjectMatematik,
		LearningArea: "Sayılar ve İşlemler", Unit: "Doğal Sayılarla İşlemler", Topic: "Doğal Sayılarla İşlemler",
		Objectives: []string{
			"İşlem önceliğini uygular",
			"Üslü nicelikleri hesaplar",
		},
		EstimatedHours: 12,
	},
	{
		ID: "mat6_carpanlar", Grade: 6, Subject: SubjectMatematik,
		LearningArea: "Sayılar ve İşlemler", Unit: "Çarpanlar ve Katlar", Topic: "Çarpanlar ve Katlar",
		Objectives: []string{
			"Bir doğal sayının çarpanlarını bulur",
			"EBOB ve EKOK hesaplar",
		},
		EstimatedHours: 10,
		Prerequisites:  []string{"mat6_dogal_sayilar"},
	},
	{
		ID: "mat6_kesirler", Grade: 6, Subject: SubjectMatematik,
		LearningArea: "Sayılar ve İşlemler", Unit: "Kesirlerle İşlemler", Topic: "Kesirlerle İşlemler",
		Objectives: []string{
			"Kesirlerle toplama ve çıkarma yapar",
			"Kesirlerle çarpma ve bölme yapar",
		},
		EstimatedHours: 14,
		Prerequisites:  []string{"mat6_carpanlar"},
	},
	{
		ID: "mat6_oran", Grade: 6, Subject: SubjectMatematik,
		LearningArea: "Sayılar ve İşlemler", Unit: "Oran", Topic: "Oran",
		Objectives: []string{
			"İki çokluğu karşılaştırarak oran belirtir",
		},
		EstimatedHours: 6,
		Prerequisites:  []string{"mat6_kesirler"},
	},
	{
		ID: "mat6_cebirsel", Grade: 6, Subject: SubjectMatematik,
		LearningArea: "Cebir", Unit: "Cebirsel İfadeler", Topic: "Cebirsel İfadeler",
		Objectives: []string{
			"Sözel ifadeleri cebirsel ifade olarak yazar",
		},
		EstimatedHours: 8,
		Prerequisites:  []string{"mat6_dogal_sayilar"},
	},
	// 6. sınıf fen bilimleri
	{
		ID: "fen6_gunes_sistemi", Grade: 6, Subject: SubjectFen,
		LearningArea: "Dünya ve Evren", Unit: "Güneş Sistemi", Topic: "Güneş Sistemi ve Tutulmalar",
		Objectives: []string{
			"Güneş sistemindeki gezegenleri sıralar",
			"Güneş ve Ay tutulmalarını açıklar",
		},
		EstimatedHours: 10,
	},
	{
		ID: "fen6_vucut", Grade: 6, Subject: SubjectFen,
		LearningArea: "Canlılar ve Yaşam", Unit: "Vücudumuzdaki Sistemler", Topic: "Vücudumuzdaki Sistemler",
		Objectives: []string{
			"Sindirim sistemini yapı ve organlarıyla açıklar",
			"Dolaşım sistemini yapı ve organlarıyla açıklar",
		},
		EstimatedHours: 14,
	},
	{
		ID: "fen6_kuvvet_hareket", Grade: 6, Subject: SubjectFen,
		LearningArea: "Fiziksel Olaylar", Unit: "Kuvvet ve Hareket", Topic: "Kuvvet ve Hareket",
		Objectives: []string{
			"Sürati hesaplar",
			"Bileşke kuvveti belirler",
		},
		EstimatedHours: 10,
		Prerequisites:  []string{"fen6_gunes_sistemi"},
	},
	// 7. sınıf matematik
	{
		ID: "mat7_tam_sayilar", Grade: 7, Subject: SubjectMatematik,
		LearningArea: "Sayılar ve İşlemler", Unit: "Tam Sayılarla İşlemler", Topic: "Tam Sayılarla İşlemler",
		Objectives: []string{
			"Tam sayılarla dört işlem yapar",
		},
		EstimatedHours: 12,
	},
	{
		ID: "mat7_rasyonel", Grade: 7, Subject: SubjectMatematik,
		LearningArea: "Sayılar ve İşlemler", Unit: "Rasyonel Sayılar", Topic: "Rasyonel Sayılar",
		Objectives: []string{
			"Rasyonel sayıları tanır ve sayı doğrusunda gösterir",
			"Rasyonel sayılarla işlem yapar",
		},
		EstimatedHours: 14,
		Prerequisites:  []string{"mat7_tam_sayilar"},
	},
	{
		ID: "mat7_denklemler", Grade: 7, Subject: SubjectMatematik,
		LearningArea: "Cebir", Unit: "Eşitlik ve Denklem", Topic: "Eşitlik ve Denklem",
		Objectives: []string{
			"Birinci dereceden bir bilinmeyenli denklemleri çözer",
		},
		EstimatedHours: 10,
		Prerequisites:  []string{"mat7_rasyonel"},
	},
	{
		ID: "mat7_oran_oranti", Grade: 7, Subject: SubjectMatematik,
		LearningArea: "Sayılar ve İşlemler", Unit: "Oran ve Orantı", Topic: "Oran ve Orantı",
		Objectives: []string{
			"Doğru ve ters orantıyı ayırt eder",
		},
		EstimatedHours: 8,
		Prerequisites:  []string{"mat7_rasyonel"},
	},
	// 7. sınıf fen bilimleri
	{
		ID: "fen7_uzay", Grade: 7, Subject: SubjectFen,
		LearningArea: "Dünya ve Evren", Unit: "Güneş Sistemi ve Ötesi", Topic: "Güneş Sistemi ve Ötesi",
		Objectives: []string{
			"Uzay araştırmalarını ve teknolojilerini açıklar",
		},
		EstimatedHours: 8,
	},
	{
		ID: "fen7_hucre", Grade: 7, Subject: SubjectFen,
		LearningArea: "Canlılar ve Yaşam", Unit: "Hücre ve Bölünmeler", Topic: "Hücre ve Bölünmeler",
		Objectives: []string{
			"Hücrenin yapısını açıklar",
			"Mitoz ve mayozu karşılaştırır",
		},
		EstimatedHours: 12,
	},
	{
		ID: "fen7_kuvvet_enerji", Grade: 7, Subject: SubjectFen,
		LearningArea: "Fiziksel Olaylar", Unit: "Kuvvet ve Enerji", Topic: "Kuvvet ve Enerji",
		Objectives: []string{
			"Kütle ile ağırlık arasındaki ilişkiyi açıklar",
			"Enerji dönüşümlerini örneklendirir",
		},
		EstimatedHours: 12,
		Prerequisites:  []string{"fen7_hucre"},
	},
	// 8. sınıf matematik
	{
		ID: "mat8_carpanlar", Grade: 8, Subject: SubjectMatematik,
		LearningArea: "Sayılar ve İşlemler", Unit: "Çarpanlar ve Katlar", Topic: "Çarpanlar ve Katlar",
		Objectives: []string{
			"Pozitif tam sayıların çarpanlarını üslü ifadelerle yazar",
		},
		EstimatedHours: 10,
	},
	{
		ID: "mat8_uslu", Grade: 8, Subject: SubjectMatematik,
		LearningArea: "Sayılar ve İşlemler", Unit: "Üslü İfadeler", Topic: "Üslü İfadeler",
		Objectives: []string{
			"Üslü ifadelerle işlem yapar",
			"Bilimsel gösterimi kullanır",
		},
		EstimatedHours: 12,
		Prerequisites:  []string{"mat8_carpanlar"},
	},
	{
		ID: "mat8_karekok", Grade: 8, Subject: SubjectMatematik,
		LearningArea: "Sayılar ve İşlemler", Unit: "Kareköklü İfadeler", Topic: "Kareköklü İfadeler",
		Objectives: []string{
			"Tam kare sayıları tanır",
			"Kareköklü ifadelerle işlem yapar",
		},
		EstimatedHours: 12,
		Prerequisites:  []string{"mat8_uslu"},
	},
	{
		ID: "mat8_denklemler", Grade: 8, Subject: SubjectMatematik,
		LearningArea: "Cebir", Unit: "Doğrusal Denklemler", Topic: "Doğrusal Denklemler",
		Objectives: []string{
			"Doğrusal denklemleri çözer",
			"Koordinat sisteminde doğrusal ilişkileri yorumlar",
		},
		EstimatedHours: 14,
		Prerequisites:  []string{"mat8_karekok"},
	},
	// 8. sınıf fen bilimleri
	{
		ID: "fen8_mevsimler", Grade: 8, Subject: SubjectFen,
		LearningArea: "Dünya ve Evren", Unit: "Mevsimler ve İklim", Topic: "Mevsimler ve İklim",
		Objectives: []string{
			"Mevsimlerin oluşumunu açıklar",
			"İklim ile hava olayları arasındaki farkı açıklar",
		},
		EstimatedHours: 8,
	},
	{
		ID: "fen8_dna", Grade: 8, Subject: SubjectFen,
		LearningArea: "Canlılar ve Yaşam", Unit: "DNA ve Genetik Kod", Topic: "DNA ve Genetik Kod",
		Objectives: []string{
			"DNA'nın yapısını model üzerinde gösterir",
			"Kalıtım ile ilgili problemleri çözer",
		},
		EstimatedHours: 14,
		Prerequisites:  []string{"fen8_mevsimler"},
	},
	{
		ID: "fen8_basinc", Grade: 8, Subject: SubjectFen,
		LearningArea: "Fiziksel Olaylar", Unit: "Basınç", Topic: "Basınç",
		Objectives: []string{
			"Katı basıncını etkileyen değişkenleri belirler",
			"Sıvı ve gaz basıncını örneklerle açıklar",
		},
		EstimatedHours: 8,
		Prerequisites:  []string{"fen8_dna"},
	},
}
