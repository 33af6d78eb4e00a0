// internal/domain/models/defaults.go
package models

// Built-in content used to seed an empty CMS and to keep the storefront
// rendering while the CMS is unreachable.

// DefaultCategories returns the starter category set in display order.
func DefaultCategories() []Category {
	return []Category{
		{DocumentID: "4c6e2a0e-0f3a-4c1b-9a51-5d1f0c3e7a01", Slug: "mien-bac", Name: "Northern Vietnam", Ten: "Miền Bắc", Icon: "mountain", Order: 1},
		{DocumentID: "4c6e2a0e-0f3a-4c1b-9a51-5d1f0c3e7a02", Slug: "mien-trung", Name: "Central Vietnam", Ten: "Miền Trung", Icon: "temple", Order: 2},
		{DocumentID: "4c6e2a0e-0f3a-4c1b-9a51-5d1f0c3e7a03", Slug: "mien-nam", Name: "Southern Vietnam", Ten: "Miền Nam", Icon: "boat", Order: 3},
		{DocumentID: "4c6e2a0e-0f3a-4c1b-9a51-5d1f0c3e7a04", Slug: "nuoc-ngoai", Name: "International", Ten: "Nước ngoài", Icon: "plane", Order: 4},
	}
}

func categoryRef(slug string) *CategoryRef {
	for _, c := range DefaultCategories() {
		if c.Slug == slug {
			ref := c.Ref()
			return &ref
		}
	}
	return nil
}

func price(v float64) *float64 { return &v }

// SampleTours returns a small featured tour set.
func SampleTours() []Tour {
	return []Tour{
		{
			DocumentID:       "9b1f7d52-6a0c-4e8e-8d0b-2f7c1e4a5b01",
			Slug:             "ha-long-2n1d",
			Title:            "Vịnh Hạ Long 2 ngày 1 đêm trên du thuyền",
			ShortDescription: "Ngủ đêm trên vịnh, chèo kayak hang Luồn, ngắm bình minh từ boong tàu.",
			Price:            2890000,
			OriginalPrice:    price(3500000),
			Destination:      "Hạ Long",
			Duration:         "2 ngày 1 đêm",
			Departure:        "Hà Nội",
			Category:         categoryRef("mien-bac"),
			Itinerary: []ItineraryDay{
				{Day: 1, Title: "Hà Nội - Hạ Long", Description: "Đón khách, lên du thuyền, chèo kayak."},
				{Day: 2, Title: "Hạ Long - Hà Nội", Description: "Tập Thái Cực quyền, thăm hang Sửng Sốt, về Hà Nội."},
			},
			Includes:     []string{"Xe đưa đón", "Cabin đôi", "Các bữa ăn theo chương trình"},
			Excludes:     []string{"Đồ uống", "Chi phí cá nhân"},
			Rating:       4.8,
			ReviewCount:  126,
			BookingCount: 412,
			Featured:     true,
		},
		{
			DocumentID:       "9b1f7d52-6a0c-4e8e-8d0b-2f7c1e4a5b02",
			Slug:             "sapa-fansipan-3n2d",
			Title:            "Sapa - Fansipan 3 ngày 2 đêm",
			ShortDescription: "Chinh phục nóc nhà Đông Dương bằng cáp treo, thăm bản Cát Cát.",
			Price:            3190000,
			Destination:      "Sapa",
			Duration:         "3 ngày 2 đêm",
			Departure:        "Hà Nội",
			Category:         categoryRef("mien-bac"),
			Includes:         []string{"Xe giường nằm", "Khách sạn 3 sao", "Hướng dẫn viên"},
			Excludes:         []string{"Vé cáp treo Fansipan"},
			Rating:           4.7,
			ReviewCount:      88,
			BookingCount:     265,
			Featured:         true,
		},
		{
			DocumentID:       "9b1f7d52-6a0c-4e8e-8d0b-2f7c1e4a5b03",
			Slug:             "da-nang-hoi-an-4n3d",
			Title:            "Đà Nẵng - Hội An - Bà Nà 4 ngày 3 đêm",
			ShortDescription: "Cầu Vàng, phố cổ Hội An về đêm, biển Mỹ Khê.",
			Price:            4590000,
			OriginalPrice:    price(5290000),
			Destination:      "Đà Nẵng",
			Duration:         "4 ngày 3 đêm",
			Departure:        "TP. Hồ Chí Minh",
			Category:         categoryRef("mien-trung"),
			Includes:         []string{"Vé máy bay khứ hồi", "Khách sạn 4 sao", "Vé Bà Nà Hills"},
			Rating:           4.9,
			ReviewCount:      203,
			BookingCount:     530,
			Featured:         true,
		},
		{
			DocumentID:       "9b1f7d52-6a0c-4e8e-8d0b-2f7c1e4a5b04",
			Slug:             "mien-tay-song-nuoc-2n1d",
			Title:            "Miền Tây sông nước 2 ngày 1 đêm",
			ShortDescription: "Chợ nổi Cái Răng, vườn trái cây, đờn ca tài tử.",
			Price:            1690000,
			Destination:      "Cần Thơ",
			Duration:         "2 ngày 1 đêm",
			Departure:        "TP. Hồ Chí Minh",
			Category:         categoryRef("mien-nam"),
			Rating:           4.6,
			ReviewCount:      57,
			BookingCount:     190,
			Featured:         true,
		},
	}
}

// DefaultPages returns placeholder informational pages.
func DefaultPages() []Page {
	pages := make([]Page, 0, len(AllPageSlugs()))
	for _, slug := range AllPageSlugs() {
		pages = append(pages, DefaultPage(slug))
	}
	return pages
}

// DefaultPage returns the placeholder for slug, or a zero Page for an
// unknown slug.
func DefaultPage(slug string) Page {
	if !IsValidPageSlug(slug) {
		return Page{}
	}
	body := map[string]string{
		PageSlugAbout:   `<p>Chúng tôi thiết kế tour trọn gói khắp Việt Nam và châu Á. Nội dung trang này được cập nhật từ CMS.</p>`,
		PageSlugContact: `<p>Liên hệ với chúng tôi qua Zalo hoặc hotline ở cuối trang để được tư vấn và đặt tour.</p>`,
		PageSlugTerms:   `<p>Điều khoản sử dụng đang được cập nhật.</p>`,
		PageSlugPrivacy: `<p>Chính sách bảo mật đang được cập nhật.</p>`,
	}[slug]
	return Page{Slug: slug, Title: DefaultPageTitle(slug), Content: body}
}
