package service

// Paginate возвращает срез страницы page (с 1) размера perPage
// Страница за пределами выборки дает пустой срез, не ошибку
func Paginate(ids []int64, page, perPage int) []int64 {
	if page <= 0 || perPage <= 0 || len(ids) == 0 {
		return []int64{}
	}

	// (page-1)*perPage может переполниться на огромных page
	if page-1 > (len(ids)-1)/perPage {
		return []int64{}
	}

	start := (page - 1) * perPage
	end := start + perPage
	if end > len(ids) {
		end = len(ids)
	}

	return ids[start:end]
}

// TotalPages - число страниц для total совпадений
func TotalPages(total, perPage int) int {
	if total <= 0 || perPage <= 0 {
		return 0
	}
	return (total + perPage - 1) / perPage
}
