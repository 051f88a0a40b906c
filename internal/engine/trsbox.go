package engine

import "math"

// trsbox approximately minimizes the quadratic model within the
// intersection of the trust region of radius delta around xopt and the
// box [sl, su]. The step is left in d and the new point in xnew. It
// returns the squared length of d and the least curvature seen along a
// search direction, which is zero when the trust region boundary was
// reached and -1 when no curvature was measured.
//
// The truncated conjugate gradient phase fixes variables at their bounds as
// they are reached. Once the step touches the trust region boundary the
// search continues with rotations of d within the boundary, one variable
// plane at a time.
func (s *state) trsbox(delta float64, gnew, xbdi, sv, hs, hred []float64) (dsq, crvmin float64) {
	n := s.n
	xopt, gopt, sl, su, d, xnew := s.xopt, s.gopt, s.sl, s.su, s.d, s.xnew

	var (
		iterc, nact, itermax, iact, isav, iu int

		beta, stepsq, gredsq, ggsav, delsq, qred, sdec, temp float64
		resid, ds, shs, dhs, dhd, blen, stplen               float64
		dredsq, dredg, sredg, angbd, xsav                    float64
		redmax, redsav, rednew, rdprev, rdnext               float64
		angt, sth, cth                                       float64
	)

	// xbdi[i] is -1 or 1 when variable i is fixed at its lower or upper
	// bound and 0 while it is free.
	for i := 0; i < n; i++ {
		xbdi[i] = 0
		if xopt[i] <= sl[i] {
			if gopt[i] >= 0 {
				xbdi[i] = -1
			}
		} else if xopt[i] >= su[i] {
			if gopt[i] <= 0 {
				xbdi[i] = 1
			}
		}
		if xbdi[i] != 0 {
			nact++
		}
		d[i] = 0
		gnew[i] = gopt[i]
	}
	delsq = delta * delta
	qred = 0
	crvmin = -1

restart:
	beta = 0
iterate:
	stepsq = 0
	for i := 0; i < n; i++ {
		if xbdi[i] != 0 {
			sv[i] = 0
		} else if beta == 0 {
			sv[i] = -gnew[i]
		} else {
			sv[i] = beta*sv[i] - gnew[i]
		}
		stepsq += sv[i] * sv[i]
	}
	if stepsq == 0 {
		goto finish
	}
	if beta == 0 {
		gredsq = stepsq
		itermax = iterc + n - nact
	}
	if gredsq*delsq <= 1e-4*qred*qred {
		goto finish
	}

	s.hessianProduct(sv, hs)
	resid = delsq
	ds = 0
	shs = 0
	for i := 0; i < n; i++ {
		if xbdi[i] == 0 {
			resid -= d[i] * d[i]
			ds += sv[i] * d[i]
			shs += sv[i] * hs[i]
		}
	}
	if resid <= 0 {
		goto boundary
	}
	temp = math.Sqrt(stepsq*resid + ds*ds)
	if ds < 0 {
		blen = (temp - ds) / stepsq
	} else {
		blen = resid / (temp + ds)
	}
	stplen = blen
	if shs > 0 {
		stplen = math.Min(blen, gredsq/shs)
	}

	// Shorten the step to stay inside the box, remembering the variable
	// that becomes fixed.
	iact = -1
	for i := 0; i < n; i++ {
		if sv[i] != 0 {
			xsum := xopt[i] + d[i]
			if sv[i] > 0 {
				temp = (su[i] - xsum) / sv[i]
			} else {
				temp = (sl[i] - xsum) / sv[i]
			}
			if temp < stplen {
				stplen = temp
				iact = i
			}
		}
	}

	sdec = 0
	if stplen > 0 {
		iterc++
		temp = shs / stepsq
		if iact < 0 && temp > 0 {
			crvmin = math.Min(crvmin, temp)
			if crvmin == -1 {
				crvmin = temp
			}
		}
		ggsav = gredsq
		gredsq = 0
		for i := 0; i < n; i++ {
			gnew[i] += stplen * hs[i]
			if xbdi[i] == 0 {
				gredsq += gnew[i] * gnew[i]
			}
			d[i] += stplen * sv[i]
		}
		sdec = math.Max(stplen*(ggsav-0.5*stplen*shs), 0)
		qred += sdec
	}

	if iact >= 0 {
		nact++
		xbdi[iact] = 1
		if sv[iact] < 0 {
			xbdi[iact] = -1
		}
		delsq -= d[iact] * d[iact]
		if delsq <= 0 {
			goto boundary
		}
		goto restart
	}

	if stplen < blen {
		if iterc == itermax {
			goto finish
		}
		if sdec <= 0.01*qred {
			goto finish
		}
		beta = gredsq / ggsav
		goto iterate
	}

boundary:
	crvmin = 0

reduced:
	if nact >= n-1 {
		goto finish
	}
	dredsq = 0
	dredg = 0
	gredsq = 0
	for i := 0; i < n; i++ {
		if xbdi[i] == 0 {
			dredsq += d[i] * d[i]
			dredg += d[i] * gnew[i]
			gredsq += gnew[i] * gnew[i]
			sv[i] = d[i]
		} else {
			sv[i] = 0
		}
	}
	s.hessianProduct(sv, hs)
	copy(hred, hs[:n])

rotate:
	iterc++
	temp = gredsq*dredsq - dredg*dredg
	if temp <= 1e-4*qred*qred {
		goto finish
	}
	temp = math.Sqrt(temp)
	for i := 0; i < n; i++ {
		if xbdi[i] == 0 {
			sv[i] = (dredg*d[i] - dredsq*gnew[i]) / temp
		} else {
			sv[i] = 0
		}
	}
	sredg = -temp

	// Bound the tangent of half the rotation angle so that the free
	// variables stay inside the box. A free variable already on a bound is
	// fixed and the rotation restarted.
	angbd = 1
	iact = -1
	for i := 0; i < n; i++ {
		if xbdi[i] != 0 {
			continue
		}
		tempa := xopt[i] + d[i] - sl[i]
		tempb := su[i] - xopt[i] - d[i]
		if tempa <= 0 {
			nact++
			xbdi[i] = -1
			goto reduced
		}
		if tempb <= 0 {
			nact++
			xbdi[i] = 1
			goto reduced
		}
		ssq := d[i]*d[i] + sv[i]*sv[i]
		temp = ssq - (xopt[i]-sl[i])*(xopt[i]-sl[i])
		if temp > 0 {
			temp = math.Sqrt(temp) - sv[i]
			if angbd*temp > tempa {
				angbd = tempa / temp
				iact = i
				xsav = -1
			}
		}
		temp = ssq - (su[i]-xopt[i])*(su[i]-xopt[i])
		if temp > 0 {
			temp = math.Sqrt(temp) + sv[i]
			if angbd*temp > tempb {
				angbd = tempb / temp
				iact = i
				xsav = 1
			}
		}
	}

	s.hessianProduct(sv, hs)
	shs = 0
	dhs = 0
	dhd = 0
	for i := 0; i < n; i++ {
		if xbdi[i] == 0 {
			shs += sv[i] * hs[i]
			dhs += d[i] * hs[i]
			dhd += d[i] * hred[i]
		}
	}

	// Sample the reduction of the model on equally spaced angles and refine
	// the best one by a parabola through its neighbours.
	redmax = 0
	isav = 0
	redsav = 0
	iu = int(17*angbd + 3.1)
	for i := 1; i <= iu; i++ {
		angt = angbd * float64(i) / float64(iu)
		sth = (angt + angt) / (1 + angt*angt)
		temp = shs + angt*(angt*dhd-dhs-dhs)
		rednew = sth * (angt*dredg - sredg - 0.5*sth*temp)
		if rednew > redmax {
			redmax = rednew
			isav = i
			rdprev = redsav
		} else if i == isav+1 {
			rdnext = rednew
		}
		redsav = rednew
	}
	if isav == 0 {
		goto finish
	}
	if isav < iu {
		temp = (rdnext - rdprev) / (redmax + redmax - rdprev - rdnext)
		angt = angbd * (float64(isav) + 0.5*temp) / float64(iu)
	}
	cth = (1 - angt*angt) / (1 + angt*angt)
	sth = (angt + angt) / (1 + angt*angt)
	temp = shs + angt*(angt*dhd-dhs-dhs)
	sdec = sth * (angt*dredg - sredg - 0.5*sth*temp)
	if sdec <= 0 {
		goto finish
	}

	dredg = 0
	gredsq = 0
	for i := 0; i < n; i++ {
		gnew[i] += (cth-1)*hred[i] + sth*hs[i]
		if xbdi[i] == 0 {
			d[i] = cth*d[i] + sth*sv[i]
			dredg += d[i] * gnew[i]
			gredsq += gnew[i] * gnew[i]
		}
		hred[i] = cth*hred[i] + sth*hs[i]
	}
	qred += sdec
	if iact >= 0 && isav == iu {
		nact++
		xbdi[iact] = xsav
		goto reduced
	}
	if sdec > 0.01*qred {
		goto rotate
	}

finish:
	dsq = 0
	for i := 0; i < n; i++ {
		xnew[i] = math.Max(math.Min(xopt[i]+d[i], su[i]), sl[i])
		if xbdi[i] == -1 {
			xnew[i] = sl[i]
		}
		if xbdi[i] == 1 {
			xnew[i] = su[i]
		}
		d[i] = xnew[i] - xopt[i]
		dsq += d[i] * d[i]
	}
	return dsq, crvmin
}

// hessianProduct sets hv to the product of the model's second derivative
// matrix and v. The matrix is the explicit part hq plus the implicit part
// sum pq[k] xpt[k] xpt[k]^T.
func (s *state) hessianProduct(v, hv []float64) {
	n := s.n
	ih := 0
	for j := 0; j < n; j++ {
		hv[j] = 0
		for i := 0; i <= j; i++ {
			if i < j {
				hv[j] += s.hq[ih] * v[i]
			}
			hv[i] += s.hq[ih] * v[j]
			ih++
		}
	}
	for k := 0; k < s.npt; k++ {
		if s.pq[k] == 0 {
			continue
		}
		temp := 0.0
		for j := 0; j < n; j++ {
			temp += s.xpt[k][j] * v[j]
		}
		temp *= s.pq[k]
		for i := 0; i < n; i++ {
			hv[i] += temp * s.xpt[k][i]
		}
	}
}
